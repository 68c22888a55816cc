package llm

import (
	"context"

	"visuallm-be/pkg/vocab"
)

// Predictor is the language-model collaborator. Predict returns the next-token
// distribution for text, aligned index-for-index with the vocabulary it was built for.
// The call blocks until the model answers; no partial results exist.
type Predictor interface {
	Predict(ctx context.Context, text string) ([]float64, error)
}

// Factory builds a Predictor once the vocabulary has been loaded.
type Factory func(v *vocab.Vocabulary, tok vocab.Tokenizer) (Predictor, error)

// Option allows optional parameters for predictors that call a remote model.
type Option func(*Options)

type Options struct {
	Temperature float64
	TopLogprobs int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopLogprobs(n int) Option {
	return func(o *Options) {
		o.TopLogprobs = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}
