// Package metrics holds the built-in generation metrics offered in the metrics panel.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// minProb keeps log(0) finite when the model gives a target token no mass.
const minProb = 1e-12

var ErrNoTargets = errors.New("no scorable target tokens")

// ExactMatch is 1 when both texts are equal after whitespace normalization.
func ExactMatch(generated, target string) (float64, error) {
	if strings.Join(strings.Fields(generated), " ") == strings.Join(strings.Fields(target), " ") {
		return 1, nil
	}
	return 0, nil
}

// TokenF1 is the harmonic mean of word-level precision and recall.
func TokenF1(generated, target string) (float64, error) {
	gen, tgt := strings.Fields(generated), strings.Fields(target)
	if len(gen) == 0 || len(tgt) == 0 {
		if len(gen) == len(tgt) {
			return 1, nil
		}
		return 0, nil
	}
	counts := make(map[string]int, len(tgt))
	for _, t := range tgt {
		counts[t]++
	}
	common := 0
	for _, g := range gen {
		if counts[g] > 0 {
			counts[g]--
			common++
		}
	}
	if common == 0 {
		return 0, nil
	}
	precision := float64(common) / float64(len(gen))
	recall := float64(common) / float64(len(tgt))
	return 2 * precision * recall / (precision + recall), nil
}

// BLEU is sentence-level BLEU up to 4-grams with add-one smoothing on the higher
// orders and the standard brevity penalty.
func BLEU(generated, target string) (float64, error) {
	gen, tgt := strings.Fields(generated), strings.Fields(target)
	if len(gen) == 0 || len(tgt) == 0 {
		return 0, nil
	}
	maxN := 4
	if len(gen) < maxN {
		maxN = len(gen)
	}

	var logSum float64
	for n := 1; n <= maxN; n++ {
		ref := ngrams(tgt, n)
		matched, total := 0, 0
		for g, c := range ngrams(gen, n) {
			total += c
			matched += min(c, ref[g])
		}
		num, den := float64(matched), float64(total)
		if n > 1 {
			num, den = num+1, den+1
		}
		if num == 0 {
			return 0, nil
		}
		logSum += math.Log(num / den)
	}

	bp := 1.0
	if len(gen) < len(tgt) {
		bp = math.Exp(1 - float64(len(tgt))/float64(len(gen)))
	}
	return bp * math.Exp(logSum/float64(maxN)), nil
}

func ngrams(tokens []string, n int) map[string]int {
	out := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return out
}

// NLL is the mean negative log-likelihood of ids under the per-step distributions.
// Negative ids mark tokens outside the vocabulary and are skipped.
func NLL(probs [][]float64, ids []int) (float64, error) {
	values, err := targetProbs(probs, ids)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, p := range values {
		sum -= math.Log(math.Max(p, minProb))
	}
	return sum / float64(len(values)), nil
}

// Perplexity is exp(NLL).
func Perplexity(probs [][]float64, ids []int) (float64, error) {
	nll, err := NLL(probs, ids)
	if err != nil {
		return 0, err
	}
	return math.Exp(nll), nil
}

// MeanProb is the average probability assigned to the target tokens.
func MeanProb(probs [][]float64, ids []int) (float64, error) {
	values, err := targetProbs(probs, ids)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, p := range values {
		sum += p
	}
	return sum / float64(len(values)), nil
}

func targetProbs(probs [][]float64, ids []int) ([]float64, error) {
	if len(probs) != len(ids) {
		return nil, fmt.Errorf("%d distributions for %d target ids", len(probs), len(ids))
	}
	values := make([]float64, 0, len(ids))
	for i, id := range ids {
		if id < 0 {
			continue
		}
		if id >= len(probs[i]) {
			return nil, fmt.Errorf("target id %d outside distribution of size %d", id, len(probs[i]))
		}
		values = append(values, probs[i][id])
	}
	if len(values) == 0 {
		return nil, ErrNoTargets
	}
	return values, nil
}
