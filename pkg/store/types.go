package store

import (
	"time"

	"github.com/rmax-ai/orbit/pkg/orbit"
)

// SessionRecord is the persisted form of an orbit session.
type SessionRecord struct {
	SessionID      string              `json:"session_id"`
	Name           string              `json:"name"`
	EntryMovieID   string              `json:"entry_movie_id"`
	CurrentMovieID string              `json:"current_movie_id"`
	HistoryIndex   int                 `json:"history_index"`
	SavedAt        time.Time           `json:"saved_at"`
	History        []orbit.HistoryNode `json:"history"`
	Edges          []orbit.Edge        `json:"edges"`
}

// SessionSummary is a lightweight listing row.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	EntryMovieID string    `json:"entry_movie_id"`
	NodeCount    int       `json:"node_count"`
	SavedAt      time.Time `json:"saved_at"`
}

// Snapshot captures the persistable state of a live session. The snapshot
// is taken through the session's accessors, so it is safe to call while
// prefetch goroutines are still in flight.
func Snapshot(s *orbit.Session, sessionID, name string) *SessionRecord {
	entry, _ := s.Entry()
	current, _ := s.Current()
	return &SessionRecord{
		SessionID:      sessionID,
		Name:           name,
		EntryMovieID:   entry.ID,
		CurrentMovieID: current.ID,
		HistoryIndex:   s.HistoryIndex(),
		History:        s.History(),
		Edges:          s.Edges(),
	}
}
