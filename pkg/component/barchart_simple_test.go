package component

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"visuallm-be/pkg/apperr"
	"visuallm-be/pkg/llm/random"
	"visuallm-be/pkg/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPredictor struct {
	probs [][]float64
	calls int
}

func (p *fixedPredictor) Predict(context.Context, string) ([]float64, error) {
	out := p.probs[p.calls%len(p.probs)]
	p.calls++
	return out, nil
}

func wordVocab(t *testing.T, n int) *vocab.Vocabulary {
	t.Helper()
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("w%02d", i)
	}
	v, err := vocab.New(tokens)
	require.NoError(t, err)
	return v
}

func TestBarChartSimpleDrawsTopWords(t *testing.T) {
	v := wordVocab(t, 30)
	c, err := NewBarChartSimple(context.Background(), "", v, random.New(v.Len(), random.DefaultSamples, 3), false)
	require.NoError(t, err)
	assert.Equal(t, BarChartDefaultTitle, c.Title())

	pieces := c.Chart().Pieces()
	require.Len(t, pieces, 10)
	for i, p := range pieces {
		require.Len(t, p.BarHeights, 1)
		assert.Equal(t, p.PieceTitle, p.BarNames[0])
		assert.Equal(t, fmt.Sprintf("%.2f%%", p.BarHeights[0]), p.BarAnnotations[0])
		if i > 0 {
			assert.LessOrEqual(t, p.BarHeights[0], pieces[i-1].BarHeights[0])
		}
	}
}

func TestBarChartSimpleSelectBar(t *testing.T) {
	v := wordVocab(t, 12)
	first := make([]float64, 12)
	first[4] = 1
	second := make([]float64, 12)
	second[7] = 1
	p := &fixedPredictor{probs: [][]float64{first, second}}

	c, err := NewBarChartSimple(context.Background(), "Words", v, p, true)
	require.NoError(t, err)
	assert.Equal(t, "Words", c.Title())
	assert.Equal(t, "w04", c.Chart().Pieces()[0].PieceTitle)

	require.NoError(t, c.SelectBar(context.Background(), json.RawMessage(`{"selected": 0}`)))
	assert.Equal(t, "Last selected: w04", c.Text().Content())
	assert.Equal(t, "w07", c.Chart().Pieces()[0].PieceTitle, "a selection draws a new distribution")

	err = c.SelectBar(context.Background(), json.RawMessage(`{"selected": 10}`))
	assert.Equal(t, apperr.KindInvalidSelection, apperr.KindOf(err))
	assert.Equal(t, "Last selected: w04", c.Text().Content())
}

func TestBarChartSimpleDimensionMismatch(t *testing.T) {
	v := wordVocab(t, 5)
	p := &fixedPredictor{probs: [][]float64{{1, 0}}}
	_, err := NewBarChartSimple(context.Background(), "", v, p, false)
	assert.Equal(t, apperr.KindDimensionMismatch, apperr.KindOf(err))
}
