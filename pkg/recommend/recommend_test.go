package recommend

import (
	"context"
	"fmt"
	"testing"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
)

func TestMockIsDeterministic(t *testing.T) {
	m := NewMock(MockConfig{Seed: 42})
	mv := film.Movie{ID: "stalker-1979", Title: "Stalker"}

	a, err := m.FindCandidate(context.Background(), mv, gesture.DirectionLeft, film.QueryContext{})
	if err != nil || a == nil {
		t.Fatalf("first lookup: %+v, %v", a, err)
	}
	b, err := m.FindCandidate(context.Background(), mv, gesture.DirectionLeft, film.QueryContext{})
	if err != nil || b == nil {
		t.Fatalf("second lookup: %+v, %v", b, err)
	}
	if a.Movie.ID != b.Movie.ID || a.Score != b.Score {
		t.Errorf("mock not deterministic: %+v vs %+v", a, b)
	}
	if a.Movie.ID == mv.ID {
		t.Error("mock recommended the input movie itself")
	}
}

func TestMockRejectsBackwardDirection(t *testing.T) {
	m := NewMock(MockConfig{})
	if _, err := m.FindCandidate(context.Background(), film.Movie{ID: "x"}, gesture.DirectionRight, film.QueryContext{}); err == nil {
		t.Fatal("expected error for right direction")
	}
}

func TestMockPin(t *testing.T) {
	m := NewMock(MockConfig{})
	mv := film.Movie{ID: "her-2013", Title: "Her"}

	want := &Candidate{Movie: film.Movie{ID: "drive-2011", Title: "Drive"}, Reason: "pinned", Score: 91}
	m.Pin(mv.ID, gesture.DirectionUp, want)
	m.Pin(mv.ID, gesture.DirectionDown, nil)

	got, err := m.FindCandidate(context.Background(), mv, gesture.DirectionUp, film.QueryContext{})
	if err != nil || got == nil || got.Movie.ID != "drive-2011" || got.Reason != "pinned" {
		t.Fatalf("pinned candidate not returned: %+v, %v", got, err)
	}

	miss, err := m.FindCandidate(context.Background(), mv, gesture.DirectionDown, film.QueryContext{})
	if err != nil || miss != nil {
		t.Fatalf("pinned miss not returned: %+v, %v", miss, err)
	}
}

func TestMockThreeWay(t *testing.T) {
	m := NewMock(MockConfig{Seed: 7})
	three, err := m.FindThreeCandidates(context.Background(), film.Movie{ID: "drive-2011", Title: "Drive"}, film.QueryContext{})
	if err != nil {
		t.Fatalf("FindThreeCandidates failed: %v", err)
	}
	if three.Vibe == nil || three.Aesthetic == nil || three.Auteur == nil {
		t.Errorf("expected all three slots filled with zero miss rate: %+v", three)
	}
}

// memoryCache is an in-process CandidateCache for decorator tests.
type memoryCache struct {
	entries map[string]Candidate
	failGet bool
	gets    int
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]Candidate)}
}

func (c *memoryCache) Get(ctx context.Context, movieID, dimension string) (*Candidate, error) {
	c.gets++
	if c.failGet {
		return nil, fmt.Errorf("cache offline")
	}
	if e, ok := c.entries[movieID+"/"+dimension]; ok {
		cc := e
		return &cc, nil
	}
	return nil, nil
}

func (c *memoryCache) Put(ctx context.Context, movieID, dimension string, cand Candidate) error {
	c.puts++
	c.entries[movieID+"/"+dimension] = cand
	return nil
}

func TestCachedStoresAndServes(t *testing.T) {
	inner := NewMock(MockConfig{Seed: 1})
	cache := newMemoryCache()
	c := NewCached(inner, cache)
	mv := film.Movie{ID: "columbus-2017", Title: "Columbus"}

	first, err := c.FindCandidate(context.Background(), mv, gesture.DirectionLeft, film.QueryContext{})
	if err != nil || first == nil {
		t.Fatalf("first lookup: %+v, %v", first, err)
	}
	if cache.puts != 1 {
		t.Errorf("expected 1 put, got %d", cache.puts)
	}

	// Pin a different result on the inner recommender; the cache should win.
	inner.Pin(mv.ID, gesture.DirectionLeft, &Candidate{Movie: film.Movie{ID: "other"}, Reason: "inner", Score: 1})
	second, err := c.FindCandidate(context.Background(), mv, gesture.DirectionLeft, film.QueryContext{})
	if err != nil || second == nil {
		t.Fatalf("second lookup: %+v, %v", second, err)
	}
	if second.Movie.ID != first.Movie.ID {
		t.Errorf("cache was bypassed: got %q, want %q", second.Movie.ID, first.Movie.ID)
	}
}

func TestCachedSurvivesCacheFailure(t *testing.T) {
	inner := NewMock(MockConfig{Seed: 1})
	cache := newMemoryCache()
	cache.failGet = true
	c := NewCached(inner, cache)

	got, err := c.FindCandidate(context.Background(), film.Movie{ID: "her-2013", Title: "Her"}, gesture.DirectionUp, film.QueryContext{})
	if err != nil || got == nil {
		t.Fatalf("cache failure must not fail the lookup: %+v, %v", got, err)
	}
}

func TestDimensionLabel(t *testing.T) {
	if DimensionLabel(gesture.DirectionLeft) != "vibe" ||
		DimensionLabel(gesture.DirectionDown) != "aesthetic" ||
		DimensionLabel(gesture.DirectionUp) != "auteur" {
		t.Error("dimension mapping broken")
	}
	if DimensionLabel(gesture.DirectionRight) != "" {
		t.Error("right must not map to a dimension")
	}
}
