// Package bigram is a count-based next-token model trained from a small corpus.
// It needs no external service, so it backs the demo components and the tests.
package bigram

import (
	"context"

	"visuallm-be/pkg/llm"
	"visuallm-be/pkg/vocab"
)

// bos marks the start of a document.
const bos = -1

type Model struct {
	vocab   *vocab.Vocabulary
	tok     vocab.Tokenizer
	alpha   float64
	unigram []float64
	total   float64
	rows    map[int][]float64
	rowSum  map[int]float64
}

var _ llm.Predictor = (*Model)(nil)

// Train counts unigrams and bigrams over docs. alpha is the additive smoothing
// applied to every vocabulary entry.
func Train(v *vocab.Vocabulary, tok vocab.Tokenizer, docs []string, alpha float64) *Model {
	m := &Model{
		vocab:   v,
		tok:     tok,
		alpha:   alpha,
		unigram: make([]float64, v.Len()),
		rows:    make(map[int][]float64),
		rowSum:  make(map[int]float64),
	}
	for _, doc := range docs {
		prev := bos
		for _, id := range v.IDs(tok.Tokenize(doc)) {
			if id < 0 {
				prev = bos
				continue
			}
			m.unigram[id]++
			m.total++
			row, ok := m.rows[prev]
			if !ok {
				row = make([]float64, v.Len())
				m.rows[prev] = row
			}
			row[id]++
			m.rowSum[prev]++
			prev = id
		}
	}
	return m
}

// NewFactory returns an llm.Factory training on docs.
func NewFactory(docs []string, alpha float64) llm.Factory {
	return func(v *vocab.Vocabulary, tok vocab.Tokenizer) (llm.Predictor, error) {
		return Train(v, tok, docs, alpha), nil
	}
}

// Predict conditions on the last token of text. Unknown or unseen histories fall
// back to the smoothed unigram distribution.
func (m *Model) Predict(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prev, known := bos, true
	if tokens := m.tok.Tokenize(text); len(tokens) > 0 {
		prev, known = m.vocab.ID(tokens[len(tokens)-1])
	}

	counts, total := m.unigram, m.total
	if row, ok := m.rows[prev]; ok && known {
		counts, total = row, m.rowSum[prev]
	}

	n := float64(len(counts))
	denom := total + m.alpha*n
	probs := make([]float64, len(counts))
	if denom == 0 {
		for i := range probs {
			probs[i] = 1 / n
		}
		return probs, nil
	}
	for i, c := range counts {
		probs[i] = (c + m.alpha) / denom
	}
	return probs, nil
}
