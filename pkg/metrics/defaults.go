package metrics

import "visuallm-be/pkg/component"

// DefaultGenerated are the text metrics offered by the generation component.
func DefaultGenerated() map[string]component.GeneratedTextMetric {
	scalable := component.MetricDescription{DisplayFormat: "%.2f", Scalable: true}
	return map[string]component.GeneratedTextMetric{
		"bleu":        {MetricDescription: scalable, Calculate: BLEU},
		"token_f1":    {MetricDescription: scalable, Calculate: TokenF1},
		"exact_match": {MetricDescription: component.MetricDescription{DisplayFormat: "%.0f", Scalable: true}, Calculate: ExactMatch},
	}
}

// DefaultProbs are the probability metrics offered by the generation component.
// NLL and perplexity are unbounded, so their bars only carry the annotation.
func DefaultProbs() map[string]component.ProbsMetric {
	return map[string]component.ProbsMetric{
		"nll":        {MetricDescription: component.MetricDescription{DisplayFormat: "%.2f"}, Calculate: NLL},
		"perplexity": {MetricDescription: component.MetricDescription{DisplayFormat: "%.2f"}, Calculate: Perplexity},
		"mean_prob":  {MetricDescription: component.MetricDescription{DisplayFormat: "%.4f", Scalable: true}, Calculate: MeanProb},
	}
}

// DefaultOrder is the order the default metrics are displayed in.
func DefaultOrder() []string {
	return []string{"exact_match", "token_f1", "bleu", "mean_prob", "nll", "perplexity"}
}
