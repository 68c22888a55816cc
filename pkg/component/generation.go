package component

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"visuallm-be/internal/pkg/logger"
	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/element"
	"visuallm-be/pkg/vocab"
)

const (
	GenerationName  = "generation"
	GenerationTitle = "Generation"
)

// Sample is one dataset row: the prompt and the reference continuation.
type Sample struct {
	Name    string `json:"name"`
	Context string `json:"context"`
	Target  string `json:"target"`
}

// LoadSamples reads a JSON array of samples.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("decode samples %s: %w", path, err)
	}
	return samples, nil
}

type GenerationConfig struct {
	Candidates int
	MaxTokens  int
	Sampling   SamplingOptions
	Seed       int64
}

// Generation continues a dataset sample with the model and scores the candidates and
// the reference target with the metrics the user selected.
type Generation struct {
	Base
	model   NextTokenModel
	metrics *MetricsEvaluator
	cfg     GenerationConfig
	logger  logger.ILogger
	rng     *rand.Rand

	vocab   *vocab.Vocabulary
	samples map[string]Sample
	current Sample

	// Inputs of the last generation, kept so a new metric selection can be
	// displayed without generating again.
	target     *MetricInput
	candidates []MetricInput

	sampleSelector *element.Selector
	contextText    *element.PlainText
	targetText     *element.PlainText
	generateButton *element.Button
}

func NewGeneration(
	ctx context.Context,
	model NextTokenModel,
	samples []Sample,
	metrics *MetricsEvaluator,
	cfg GenerationConfig,
	log logger.ILogger,
) (*Generation, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("generation needs at least one sample")
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 10
	}

	v, err := model.InitializeVocab(ctx)
	if err != nil {
		return nil, err
	}

	g := &Generation{
		model:   model,
		metrics: metrics,
		cfg:     cfg,
		logger:  log,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		vocab:   v,
		samples: make(map[string]Sample, len(samples)),

		sampleSelector: element.NewSelector(GenerationName+".sample", "Sample", "/generation/sample"),
		contextText:    element.NewPlainText(GenerationName+".context", ""),
		targetText:     element.NewPlainText(GenerationName+".target", ""),
		generateButton: element.NewButton(GenerationName+".generate", "Generate", "/generation/generate"),
	}

	names := make([]string, 0, len(samples))
	for _, s := range samples {
		if _, dup := g.samples[s.Name]; dup {
			return nil, fmt.Errorf("duplicate sample name %q", s.Name)
		}
		g.samples[s.Name] = s
		names = append(names, s.Name)
	}
	if err := g.sampleSelector.SetOptions(names, names[0]); err != nil {
		return nil, err
	}
	g.showSample(samples[0])

	g.Base = NewBase(GenerationName, GenerationTitle,
		element.NewHeading(GenerationName+".heading", "Model Inputs"),
		g.sampleSelector,
		g.contextText,
		g.targetText,
	)
	g.AddElements(metrics.SelectionElements()...)
	g.AddElements(g.generateButton)
	g.AddElements(metrics.DisplayElements()...)
	return g, nil
}

func (g *Generation) Current() Sample { return g.current }

// SelectSample switches the displayed sample. Results of the previous sample are
// cleared.
func (g *Generation) SelectSample(raw json.RawMessage) error {
	if err := g.sampleSelector.Receive(raw); err != nil {
		return err
	}
	g.showSample(g.samples[g.sampleSelector.Selected()])
	g.target, g.candidates = nil, nil
	if err := g.metrics.TargetChart().SetPieces(nil); err != nil {
		return err
	}
	return g.metrics.PredictionChart().SetPieces(nil)
}

// SelectMetrics applies the checkbox submission and redraws the charts of the last
// generation.
func (g *Generation) SelectMetrics(raw json.RawMessage) error {
	if err := g.metrics.ReceiveSelection(raw); err != nil {
		return err
	}
	if g.target == nil {
		return nil
	}
	return g.display(*g.target, g.candidates)
}

// Generate produces the configured number of candidates for the current sample. The
// first candidate is greedy, the others are sampled.
func (g *Generation) Generate(ctx context.Context) error {
	target, err := g.scoreTarget(ctx)
	if err != nil {
		return err
	}
	candidates := make([]MetricInput, 0, g.cfg.Candidates)
	for i := 0; i < g.cfg.Candidates; i++ {
		opts := g.cfg.Sampling
		if i == 0 {
			opts.Temperature = 0
		}
		cand, err := g.generate(ctx, opts)
		if err != nil {
			return err
		}
		candidates = append(candidates, cand)
	}

	if err := g.display(target, candidates); err != nil {
		return err
	}
	g.target, g.candidates = &target, candidates
	return nil
}

func (g *Generation) Endpoints() []Endpoint {
	return []Endpoint{
		{
			Path:   "/generation/sample",
			Method: MethodPost,
			Callback: func(req Request) (Fields, error) {
				return nil, g.SelectSample(req.Body)
			},
		},
		{
			Path:   "/generation/metrics",
			Method: MethodPost,
			Callback: func(req Request) (Fields, error) {
				return nil, g.SelectMetrics(req.Body)
			},
		},
		{
			Path:   "/generation/generate",
			Method: MethodPost,
			Callback: func(req Request) (Fields, error) {
				return nil, g.Generate(req.Context())
			},
		},
	}
}

func (g *Generation) showSample(s Sample) {
	g.current = s
	g.contextText.SetContent(s.Context)
	g.targetText.SetContent(s.Target)
}

// generate continues the sample context token by token.
func (g *Generation) generate(ctx context.Context, opts SamplingOptions) (MetricInput, error) {
	text := g.current.Context
	var (
		generated string
		steps     [][]float64
		ids       []int
	)
	for step := 0; step < g.cfg.MaxTokens; step++ {
		probs, err := g.model.GetNextTokenPredictions(ctx, text)
		if err != nil {
			return MetricInput{}, err
		}
		id := sampleToken(probs, opts, g.rng)
		token, ok := g.vocab.Token(id)
		if !ok {
			break
		}
		next, err := g.model.AppendToContext(text, token)
		if err != nil {
			// The model cannot continue with this token; the candidate ends here.
			break
		}
		if generated, err = g.model.AppendToContext(generated, token); err != nil {
			break
		}
		text = next
		steps = append(steps, probs)
		ids = append(ids, id)
	}
	return MetricInput{Text: generated, Probs: steps, IDs: ids}, nil
}

// scoreTarget feeds the reference continuation to the model one token at a time and
// records the distribution seen before each of its tokens.
func (g *Generation) scoreTarget(ctx context.Context) (MetricInput, error) {
	text := g.current.Context
	tokens := g.model.Tokenize(g.current.Target)
	steps := make([][]float64, 0, len(tokens))
	for _, token := range tokens {
		probs, err := g.model.GetNextTokenPredictions(ctx, text)
		if err != nil {
			return MetricInput{}, err
		}
		steps = append(steps, probs)
		if next, err := g.model.AppendToContext(text, token); err == nil {
			text = next
		}
	}
	return MetricInput{
		Text:  strings.TrimSpace(g.current.Target),
		Probs: steps,
		IDs:   g.vocab.IDs(tokens),
	}, nil
}

// display renders both charts. Under the soft policy metric failures are logged and
// the charts still show every value that could be computed.
func (g *Generation) display(target MetricInput, candidates []MetricInput) error {
	err := g.metrics.ComputeAndDisplay(target, candidates)
	if err == nil {
		return nil
	}
	if g.metrics.Policy() == FailFast {
		return err
	}

	var merr *apperr.MetricComputationError
	if !errors.As(err, &merr) {
		return err
	}
	g.logger.Warn("Generation", "Metric computation failed", map[string]interface{}{
		"sample": g.current.Name,
		"error":  err.Error(),
	})
	return nil
}
