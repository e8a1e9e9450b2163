package orbit

import (
	"time"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
)

// ConnectionType is the similarity dimension an edge was traversed along.
type ConnectionType string

const (
	ConnectionVibe      ConnectionType = "vibe"
	ConnectionAesthetic ConnectionType = "aesthetic"
	ConnectionAuteur    ConnectionType = "auteur"
	// ConnectionEntry marks the session's starting movie in exported graphs.
	ConnectionEntry ConnectionType = "entry"
)

// ConnectionFor maps a forward swipe direction to its connection type.
// Right (rewind) and none have no mapping.
func ConnectionFor(dir gesture.Direction) (ConnectionType, bool) {
	switch dir {
	case gesture.DirectionLeft:
		return ConnectionVibe, true
	case gesture.DirectionDown:
		return ConnectionAesthetic, true
	case gesture.DirectionUp:
		return ConnectionAuteur, true
	}
	return "", false
}

// HistoryNode is one visited position in the exploration history. The same
// movie may appear in several nodes when revisited.
type HistoryNode struct {
	Movie     film.Movie `json:"movie"`
	EnteredAt time.Time  `json:"entered_at"`
	Saved     bool       `json:"saved"`
}

// Edge records one forward navigation between two movies. Edges accumulate
// for the lifetime of the session and are never pruned when history is
// truncated by branching, so an edge may reference a movie id that no node
// currently carries. Consumers must look endpoints up by id and skip
// missing references.
type Edge struct {
	FromID string         `json:"from_id"`
	ToID   string         `json:"to_id"`
	Type   ConnectionType `json:"type"`
	Reason string         `json:"reason"`
	Score  float64        `json:"score"`
}
