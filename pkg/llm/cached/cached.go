package cached

import (
	"context"

	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

// Cache stores distributions by context text.
type Cache interface {
	Get(text string) ([]float64, bool)
	Set(text string, probs []float64)
}

// Predictor memoizes a deterministic predictor so repeated fetches of the same
// context skip the model call.
type Predictor struct {
	inner llm.Predictor
	cache Cache
}

var _ llm.Predictor = (*Predictor)(nil)

func New(inner llm.Predictor, cache Cache) *Predictor {
	return &Predictor{inner: inner, cache: cache}
}

// Wrap decorates every predictor built by f.
func Wrap(f llm.Factory, cache Cache) llm.Factory {
	return func(v *vocab.Vocabulary, tok vocab.Tokenizer) (llm.Predictor, error) {
		inner, err := f(v, tok)
		if err != nil {
			return nil, err
		}
		return New(inner, cache), nil
	}
}

func (p *Predictor) Predict(ctx context.Context, text string) ([]float64, error) {
	if probs, ok := p.cache.Get(text); ok {
		return append([]float64(nil), probs...), nil
	}
	probs, err := p.inner.Predict(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Set(text, append([]float64(nil), probs...))
	return probs, nil
}
