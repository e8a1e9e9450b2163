package orbit

import (
	"context"
	"log"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/recommend"
)

// prefetchCache holds at most one speculative candidate per forward
// direction, always for the session's current movie. NavigateTo and
// EnterOrbit replace it wholesale.
type prefetchCache struct {
	vibe      *recommend.Candidate
	aesthetic *recommend.Candidate
	auteur    *recommend.Candidate
}

func (c *prefetchCache) slot(ct ConnectionType) **recommend.Candidate {
	switch ct {
	case ConnectionVibe:
		return &c.vibe
	case ConnectionAesthetic:
		return &c.aesthetic
	case ConnectionAuteur:
		return &c.auteur
	}
	return nil
}

func (c *prefetchCache) peek(ct ConnectionType) *recommend.Candidate {
	if s := c.slot(ct); s != nil {
		return *s
	}
	return nil
}

// take consumes the slot: a cached candidate is used at most once.
func (c *prefetchCache) take(ct ConnectionType) *recommend.Candidate {
	s := c.slot(ct)
	if s == nil {
		return nil
	}
	cand := *s
	*s = nil
	return cand
}

func (c *prefetchCache) set(ct ConnectionType, cand *recommend.Candidate) {
	if s := c.slot(ct); s != nil {
		*s = cand
	}
}

// startPrefetch fans out one speculative port call per forward direction
// for the given movie. Each call is tagged with the epoch current at
// fan-out time; results are applied only while that epoch is still the
// session's, so a late arrival from a superseded fan-out can never land in
// the cache for the wrong movie. The remote call itself is not cancelled,
// since it may be shared or cached downstream; its result is simply dropped.
func (s *Session) startPrefetch(mv film.Movie, epoch uint64) {
	s.mu.Lock()
	qc := s.qc
	timeout := s.prefetchTimeout
	s.mu.Unlock()

	for _, dir := range recommend.ForwardDirections {
		ct, _ := ConnectionFor(dir)
		go func(dir gesture.Direction, ct ConnectionType) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			cand, err := s.rec.FindCandidate(ctx, mv, dir, qc)
			if err != nil {
				prefetchTotal.WithLabelValues("error").Inc()
				log.Printf("prefetch failed for %s/%s: %v", mv.ID, dir, err)
				return
			}
			if cand == nil {
				prefetchTotal.WithLabelValues("miss").Inc()
				return
			}
			s.applyPrefetch(epoch, ct, cand)
		}(dir, ct)
	}
}

// applyPrefetch folds one fan-out result into the cache, dropping it when
// the tagged epoch has been superseded.
func (s *Session) applyPrefetch(epoch uint64, ct ConnectionType, cand *recommend.Candidate) {
	s.mu.Lock()
	if !s.active || epoch != s.epoch {
		s.mu.Unlock()
		prefetchTotal.WithLabelValues("stale").Inc()
		return
	}
	s.cache.set(ct, cand)
	notify := s.notify
	s.mu.Unlock()

	prefetchTotal.WithLabelValues("applied").Inc()
	if notify != nil {
		notify()
	}
}
