package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/orbit"
)

// SaveSession writes a session record atomically, replacing any previous
// save under the same id.
func (s *Store) SaveSession(ctx context.Context, rec *SessionRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	// Replace wholesale; cascades clear old nodes and edges.
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, rec.SessionID); err != nil {
		return fmt.Errorf("failed to clear previous save: %w", err)
	}

	savedAt := rec.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, name, entry_movie_id, current_movie_id, history_index, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Name, rec.EntryMovieID, rec.CurrentMovieID, rec.HistoryIndex, savedAt,
	); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	for i, node := range rec.History {
		movieJSON, err := json.Marshal(node.Movie)
		if err != nil {
			return fmt.Errorf("failed to marshal movie %s: %w", node.Movie.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_nodes (session_id, position, movie_id, movie, entered_at, saved)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.SessionID, i, node.Movie.ID, string(movieJSON), node.EnteredAt.UTC(), node.Saved,
		); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", i, err)
		}
	}

	for i, edge := range rec.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_edges (session_id, position, from_movie_id, to_movie_id, connection_type, reason, score)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.SessionID, i, edge.FromID, edge.ToID, string(edge.Type), edge.Reason, edge.Score,
		); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadSession reads a saved session. It returns (nil, nil) when no save
// exists under the id.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	rec := &SessionRecord{SessionID: sessionID}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, entry_movie_id, current_movie_id, history_index, saved_at
		 FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.Name, &rec.EntryMovieID, &rec.CurrentMovieID, &rec.HistoryIndex, &rec.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT movie, entered_at, saved FROM session_nodes
		 WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			movieJSON string
			node      orbit.HistoryNode
		)
		if err := rows.Scan(&movieJSON, &node.EnteredAt, &node.Saved); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		var mv film.Movie
		if err := json.Unmarshal([]byte(movieJSON), &mv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal movie: %w", err)
		}
		node.Movie = mv
		rec.History = append(rec.History, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("node iteration failed: %w", err)
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT from_movie_id, to_movie_id, connection_type, reason, score FROM session_edges
		 WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var (
			e  orbit.Edge
			ct string
		)
		if err := edgeRows.Scan(&e.FromID, &e.ToID, &ct, &e.Reason, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		e.Type = orbit.ConnectionType(ct)
		rec.Edges = append(rec.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("edge iteration failed: %w", err)
	}

	return rec, nil
}

// ListSessions returns saved sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.session_id, s.name, s.entry_movie_id, s.saved_at,
		        (SELECT COUNT(*) FROM session_nodes n WHERE n.session_id = s.session_id)
		 FROM sessions s ORDER BY s.saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*SessionSummary
	for rows.Next() {
		sum := &SessionSummary{}
		if err := rows.Scan(&sum.SessionID, &sum.Name, &sum.EntryMovieID, &sum.SavedAt, &sum.NodeCount); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteSession removes a saved session and its nodes and edges.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SavedMovies returns every saved movie across all persisted sessions,
// deduplicated by movie id, most recently entered first.
func (s *Store) SavedMovies(ctx context.Context) ([]film.Movie, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT movie FROM session_nodes WHERE saved = 1
		 GROUP BY movie_id ORDER BY MAX(entered_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved movies: %w", err)
	}
	defer rows.Close()

	var out []film.Movie
	for rows.Next() {
		var movieJSON string
		if err := rows.Scan(&movieJSON); err != nil {
			return nil, fmt.Errorf("failed to scan saved movie: %w", err)
		}
		var mv film.Movie
		if err := json.Unmarshal([]byte(movieJSON), &mv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal saved movie: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

// Apply loads the record into a live session via Session.Restore.
func (rec *SessionRecord) Apply(s *orbit.Session) bool {
	return s.Restore(rec.History, rec.HistoryIndex, rec.Edges)
}
