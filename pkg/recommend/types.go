package recommend

import (
	"context"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
)

// Candidate is a recommendation result that has not been committed to any
// navigation history yet.
type Candidate struct {
	Movie  film.Movie `json:"movie"`
	Reason string     `json:"reason"`
	Score  float64    `json:"score"`
}

// ThreeWay bundles one candidate per similarity dimension. Any slot may be
// nil when that dimension produced no result.
type ThreeWay struct {
	Vibe      *Candidate `json:"vibe,omitempty"`
	Aesthetic *Candidate `json:"aesthetic,omitempty"`
	Auteur    *Candidate `json:"auteur,omitempty"`
}

// Recommender is the port to the external similarity engine.
//
// FindCandidate returns (nil, nil) when no candidate could be produced for
// the direction; that is a normal outcome, not an error. Directions are the
// three forward swipes: left (vibe), down (aesthetic), up (auteur).
//
// FindThreeCandidates queries all three dimensions at once and tolerates
// per-slot failure: one dimension failing must not fail the others.
type Recommender interface {
	FindCandidate(ctx context.Context, m film.Movie, dir gesture.Direction, qc film.QueryContext) (*Candidate, error)
	FindThreeCandidates(ctx context.Context, m film.Movie, qc film.QueryContext) (ThreeWay, error)
}

// ForwardDirections are the swipe directions that map to a similarity
// dimension, in vibe/aesthetic/auteur order.
var ForwardDirections = []gesture.Direction{
	gesture.DirectionLeft,
	gesture.DirectionDown,
	gesture.DirectionUp,
}

// DimensionLabel names the similarity dimension behind a forward direction.
// Unknown directions return "".
func DimensionLabel(dir gesture.Direction) string {
	switch dir {
	case gesture.DirectionLeft:
		return "vibe"
	case gesture.DirectionDown:
		return "aesthetic"
	case gesture.DirectionUp:
		return "auteur"
	}
	return ""
}
