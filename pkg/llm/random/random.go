// Package random puts exponentially growing weights on a handful of random tokens.
// It reproduces the demo distribution used by the bar chart component.
package random

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

// DefaultSamples is the number of tokens receiving probability mass.
const DefaultSamples = 10

type Predictor struct {
	size    int
	samples int

	mu  sync.Mutex
	rng *rand.Rand
}

var _ llm.Predictor = (*Predictor)(nil)

func New(size, samples int, seed int64) *Predictor {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &Predictor{size: size, samples: samples, rng: rand.New(rand.NewSource(seed))}
}

func NewFactory(samples int, seed int64) llm.Factory {
	return func(v *vocab.Vocabulary, _ vocab.Tokenizer) (llm.Predictor, error) {
		return New(v.Len(), samples, seed), nil
	}
}

// Predict ignores text. The i-th sampled token gets weight exp(i + noise) with noise
// uniform in [-1, 1); the weights are normalized to sum to one.
func (p *Predictor) Predict(ctx context.Context, _ string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int, p.samples)
	weights := make([]float64, p.samples)
	var sum float64
	for i := range ids {
		ids[i] = p.rng.Intn(p.size)
		weights[i] = math.Exp(float64(i) + p.rng.Float64()*2 - 1)
		sum += weights[i]
	}

	probs := make([]float64, p.size)
	for i, id := range ids {
		probs[id] += weights[i] / sum
	}
	return probs, nil
}
