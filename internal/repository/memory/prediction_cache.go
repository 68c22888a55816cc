package memory

import (
	"time"

	"visuallm-be/pkg/llm/cached"

	"github.com/patrickmn/go-cache"
)

// PredictionCache keeps next-token distributions by context text.
type PredictionCache struct {
	cache *cache.Cache
}

var _ cached.Cache = (*PredictionCache)(nil)

// NewPredictionCache expires entries after ttl and purges expired items every
// ten minutes.
func NewPredictionCache(ttl time.Duration) *PredictionCache {
	return &PredictionCache{cache: cache.New(ttl, 10*time.Minute)}
}

func (r *PredictionCache) Get(text string) ([]float64, bool) {
	if x, found := r.cache.Get(text); found {
		return x.([]float64), true
	}
	return nil, false
}

func (r *PredictionCache) Set(text string, probs []float64) {
	r.cache.Set(text, probs, cache.DefaultExpiration)
}

func (r *PredictionCache) Len() int { return r.cache.ItemCount() }
