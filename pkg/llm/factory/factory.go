package factory

import (
	"fmt"

	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/llm/bigram"
	"visuallm-be/pkg/llm/ollama"
	"visuallm-be/pkg/llm/random"
)

type Options struct {
	BaseURL   string
	ModelName string
	TopN      int
	Corpus    []string
	Smoothing float64
	Seed      int64
}

// NewPredictorFactory picks the model collaborator by name.
func NewPredictorFactory(providerType string, opts Options) (llm.Factory, error) {
	switch providerType {
	case "bigram":
		if len(opts.Corpus) == 0 {
			return nil, fmt.Errorf("bigram predictor needs a non-empty corpus")
		}
		return bigram.NewFactory(opts.Corpus, opts.Smoothing), nil
	case "random":
		return random.NewFactory(random.DefaultSamples, opts.Seed), nil
	case "ollama":
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		topN := opts.TopN
		if topN < 20 {
			topN = 20
		}
		return ollama.NewFactory(baseURL, opts.ModelName, llm.WithTopLogprobs(topN)), nil
	default:
		return nil, fmt.Errorf("unsupported predictor: %s", providerType)
	}
}
