package bigram

import (
	"context"
	"testing"

	"visuallm-be/pkg/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatModel(t *testing.T, alpha float64) (*Model, *vocab.Vocabulary) {
	t.Helper()
	v, err := vocab.New([]string{"the", "cat", "dog", "sat"})
	require.NoError(t, err)
	docs := []string{"the cat sat", "the cat sat", "the dog sat"}
	return Train(v, vocab.WordTokenizer{}, docs, alpha), v
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestPredict(t *testing.T) {
	m, v := newCatModel(t, 0)
	ctx := context.Background()

	tests := []struct {
		name  string
		text  string
		token string
		want  float64
	}{
		{"after the", "the", "cat", 2.0 / 3},
		{"after the, dog", "the", "dog", 1.0 / 3},
		{"conditions on last token", "a dog or a cat", "sat", 1},
		{"empty text starts a document", "", "the", 1},
		{"unknown history falls back to unigram", "zebra", "sat", 3.0 / 9},
		{"unseen history falls back to unigram", "sat", "the", 3.0 / 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs, err := m.Predict(ctx, tt.text)
			require.NoError(t, err)
			require.Len(t, probs, v.Len())
			assert.InDelta(t, 1, sum(probs), 1e-9)
			id, _ := v.ID(tt.token)
			assert.InDelta(t, tt.want, probs[id], 1e-9)
		})
	}
}

func TestPredictSmoothing(t *testing.T) {
	m, v := newCatModel(t, 1)
	probs, err := m.Predict(context.Background(), "the")
	require.NoError(t, err)
	assert.InDelta(t, 1, sum(probs), 1e-9)
	sat, _ := v.ID("sat")
	// Row "the" has 3 observations over 4 tokens: (0 + 1) / (3 + 4).
	assert.InDelta(t, 1.0/7, probs[sat], 1e-9)
}

func TestPredictEmptyCorpus(t *testing.T) {
	v, err := vocab.New([]string{"a", "b"})
	require.NoError(t, err)
	m := Train(v, vocab.WordTokenizer{}, nil, 0)
	probs, err := m.Predict(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, probs)
}

func TestPredictCancelled(t *testing.T) {
	m, _ := newCatModel(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Predict(ctx, "the")
	assert.ErrorIs(t, err, context.Canceled)
}
