package formatter

import (
	"math"
	"sort"

	"visuallm-be/pkg/apperr"
)

// Continuation is a candidate next token with its probability in percent.
type Continuation struct {
	Token string  `json:"token"`
	Prob  float64 `json:"prob"`
}

// Softmax turns a probability vector into the top-N continuations.
type Softmax struct {
	// N is the number of continuations returned. N <= 0 returns every token.
	N int
}

func NewSoftmax(n int) *Softmax {
	return &Softmax{N: n}
}

// AssignWordsToProbs pairs probs with vocab index-for-index and returns the N most
// probable entries, highest first. Equal probabilities keep vocabulary order. A NaN
// or infinite probability is rejected as an invalid payload.
func (s *Softmax) AssignWordsToProbs(probs []float64, vocab []string) ([]Continuation, error) {
	if len(probs) != len(vocab) {
		return nil, apperr.DimensionMismatch(len(probs), len(vocab))
	}

	order := make([]int, len(probs))
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, apperr.New(apperr.ErrInvalidPayload, "probs", "probability of %q is %v", vocab[i], p)
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	n := s.N
	if n <= 0 || n > len(order) {
		n = len(order)
	}

	result := make([]Continuation, 0, n)
	for _, idx := range order[:n] {
		result = append(result, Continuation{Token: vocab[idx], Prob: probs[idx] * 100})
	}
	return result, nil
}
