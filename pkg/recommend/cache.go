package recommend

import (
	"context"
	"log"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
)

// CandidateCache is a shared lookup for previously computed candidates,
// keyed by source movie and similarity dimension. Get returns (nil, nil)
// on a miss.
//
// The redis implementation lives in pkg/store/redis.
type CandidateCache interface {
	Get(ctx context.Context, movieID, dimension string) (*Candidate, error)
	Put(ctx context.Context, movieID, dimension string, c Candidate) error
}

// Cached wraps a Recommender with a best-effort candidate cache. Cache
// failures are logged and otherwise ignored; the inner recommender remains
// the source of truth.
type Cached struct {
	inner Recommender
	cache CandidateCache
}

// NewCached wraps inner with cache.
func NewCached(inner Recommender, cache CandidateCache) *Cached {
	return &Cached{inner: inner, cache: cache}
}

func (c *Cached) FindCandidate(ctx context.Context, m film.Movie, dir gesture.Direction, qc film.QueryContext) (*Candidate, error) {
	dim := DimensionLabel(dir)
	if dim != "" {
		cached, err := c.cache.Get(ctx, m.ID, dim)
		if err != nil {
			log.Printf("candidate cache get failed for %s/%s: %v", m.ID, dim, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	cand, err := c.inner.FindCandidate(ctx, m, dir, qc)
	if err != nil || cand == nil {
		return cand, err
	}

	if dim != "" {
		if err := c.cache.Put(ctx, m.ID, dim, *cand); err != nil {
			log.Printf("candidate cache put failed for %s/%s: %v", m.ID, dim, err)
		}
	}
	return cand, nil
}

func (c *Cached) FindThreeCandidates(ctx context.Context, m film.Movie, qc film.QueryContext) (ThreeWay, error) {
	var out ThreeWay
	for _, dir := range ForwardDirections {
		cand, err := c.FindCandidate(ctx, m, dir, qc)
		if err != nil || cand == nil {
			continue
		}
		switch dir {
		case gesture.DirectionLeft:
			out.Vibe = cand
		case gesture.DirectionDown:
			out.Aesthetic = cand
		case gesture.DirectionUp:
			out.Auteur = cand
		}
	}
	return out, nil
}
