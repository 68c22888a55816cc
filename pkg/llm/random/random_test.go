package random

import (
	"context"
	"testing"

	"visuallm-be/pkg/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict(t *testing.T) {
	p := New(100, 10, 1)

	for i := 0; i < 5; i++ {
		probs, err := p.Predict(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, probs, 100)

		var sum float64
		nonZero := 0
		for _, x := range probs {
			assert.GreaterOrEqual(t, x, 0.0)
			sum += x
			if x > 0 {
				nonZero++
			}
		}
		assert.InDelta(t, 1, sum, 1e-9)
		assert.LessOrEqual(t, nonZero, 10)
		assert.GreaterOrEqual(t, nonZero, 1)
	}
}

func TestPredictIsSeeded(t *testing.T) {
	a, err := New(50, 10, 9).Predict(context.Background(), "")
	require.NoError(t, err)
	b, err := New(50, 10, 9).Predict(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewFactory(t *testing.T) {
	v, err := vocab.New([]string{"a", "b", "c"})
	require.NoError(t, err)
	p, err := NewFactory(0, 1)(v, vocab.WordTokenizer{})
	require.NoError(t, err)
	probs, err := p.Predict(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, probs, 3)
}
