package main

import (
	"context"
	"testing"
	"time"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/orbit"
	"github.com/rmax-ai/orbit/pkg/recommend"
	"github.com/rmax-ai/orbit/pkg/store"
)

func newTestModel(t *testing.T, cfg Config) (model, *recommend.Mock) {
	t.Helper()
	mock := recommend.NewMock(recommend.MockConfig{Seed: 1})
	session := orbit.NewSession(mock, nil, orbit.WithPrefetchTimeout(100*time.Millisecond))
	m := model{
		cfg:     cfg,
		session: session,
		catalog: mock.Catalog(),
	}
	m.recognizer = gesture.NewRecognizer(80, 24, func(gesture.Event) {})
	return m, mock
}

// The session must stay inactive until Init's start command runs: entering
// orbit earlier would arm the prefetch fan-out before the program exists to
// receive its notifications.
func TestSessionStartsFromInitCommand(t *testing.T) {
	m, _ := newTestModel(t, Config{SessionID: "default"})

	if m.session.IsActive() {
		t.Fatal("session active before the start command ran")
	}

	msg := m.startSession()
	started, ok := msg.(sessionStartedMsg)
	if !ok {
		t.Fatalf("startSession returned %T", msg)
	}
	if started.resumed {
		t.Error("fresh start reported as resumed")
	}
	if !m.session.IsActive() {
		t.Fatal("session not active after the start command")
	}

	cur, _ := m.session.Current()
	if cur.ID != m.catalog[0].ID {
		t.Errorf("entry movie = %q, want first catalog movie", cur.ID)
	}
}

func TestStartSessionHonorsMovieFlag(t *testing.T) {
	m, _ := newTestModel(t, Config{SessionID: "default", MovieID: "stalker-1979"})

	m.startSession()
	cur, _ := m.session.Current()
	if cur.ID != "stalker-1979" {
		t.Errorf("entry movie = %q, want stalker-1979", cur.ID)
	}
}

func TestStartSessionResumesSavedSession(t *testing.T) {
	db, err := store.NewStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer db.Close()

	saved := orbit.NewSession(recommend.NewMock(recommend.MockConfig{Seed: 1}), nil,
		orbit.WithPrefetchTimeout(time.Millisecond))
	saved.EnterOrbit(film.Movie{ID: "a", Title: "Alpha"})
	saved.NavigateTo(film.Movie{ID: "b", Title: "Beta"}, gesture.DirectionLeft, "same mood", 80)
	if err := db.SaveSession(context.Background(), store.Snapshot(saved, "s1", "s1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	m, _ := newTestModel(t, Config{SessionID: "s1", Resume: true})
	m.db = db

	msg := m.startSession()
	started, ok := msg.(sessionStartedMsg)
	if !ok {
		t.Fatalf("startSession returned %T", msg)
	}
	if !started.resumed {
		t.Error("expected the saved session to resume")
	}
	if got := len(m.session.History()); got != 2 {
		t.Errorf("restored history length = %d, want 2", got)
	}
	cur, _ := m.session.Current()
	if cur.ID != "b" {
		t.Errorf("restored cursor = %q, want b", cur.ID)
	}
}
