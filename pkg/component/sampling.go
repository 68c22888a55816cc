package component

import (
	"math"
	"math/rand"
	"sort"
)

// SamplingOptions controls how a candidate picks its next token.
type SamplingOptions struct {
	// TopK keeps only the K most probable tokens. 0 keeps all of them.
	TopK int
	// Temperature <= 0 means greedy decoding.
	Temperature float64
}

func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

// sampleToken applies temperature and top-k filtering to probs, renormalizes and
// draws one index by walking the cumulative distribution.
func sampleToken(probs []float64, opts SamplingOptions, rng *rand.Rand) int {
	if len(probs) == 0 {
		return -1
	}
	if opts.Temperature <= 0 {
		return argmax(probs)
	}

	weights := make([]float64, len(probs))
	for i, p := range probs {
		if p > 0 {
			weights[i] = math.Pow(p, 1/opts.Temperature)
		}
	}

	if opts.TopK > 0 && opts.TopK < len(weights) {
		indices := make([]int, len(weights))
		for i := range indices {
			indices[i] = i
		}
		sort.SliceStable(indices, func(a, b int) bool {
			return weights[indices[a]] > weights[indices[b]]
		})
		for _, idx := range indices[opts.TopK:] {
			weights[idx] = 0
		}
	}

	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return argmax(probs)
	}

	u := rng.Float64() * sum
	var cumulative float64
	last := -1
	for i, w := range weights {
		if w == 0 {
			continue
		}
		cumulative += w
		last = i
		if u < cumulative {
			return i
		}
	}
	// Rounding left u past the last bucket.
	return last
}
