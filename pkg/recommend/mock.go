package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
)

// MockConfig tunes the synthetic recommender.
type MockConfig struct {
	Latency   time.Duration
	MissRate  float64 // probability a lookup returns no candidate
	ErrorRate float64 // probability a lookup fails outright
	Seed      int64
}

// Mock is a deterministic recommender backed by a small synthetic catalog.
// Given the same seed and inputs it always produces the same candidates,
// which makes it suitable for the simulator and for tests.
type Mock struct {
	mu      sync.Mutex
	rng     *rand.Rand
	config  MockConfig
	pinned  map[string]*Candidate // key: movieID + "/" + direction
	catalog []film.Movie
}

// NewMock creates a mock recommender with a built-in catalog.
func NewMock(cfg MockConfig) *Mock {
	return &Mock{
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		config:  cfg,
		pinned:  make(map[string]*Candidate),
		catalog: defaultCatalog(),
	}
}

// Pin fixes the candidate returned for a movie/direction pair. A nil
// candidate pins a miss.
func (m *Mock) Pin(movieID string, dir gesture.Direction, c *Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[movieID+"/"+string(dir)] = c
}

// Catalog exposes the synthetic movie list, useful for picking an entry
// movie in the TUI and simulator.
func (m *Mock) Catalog() []film.Movie {
	out := make([]film.Movie, len(m.catalog))
	copy(out, m.catalog)
	return out
}

func (m *Mock) FindCandidate(ctx context.Context, mv film.Movie, dir gesture.Direction, qc film.QueryContext) (*Candidate, error) {
	if DimensionLabel(dir) == "" {
		return nil, fmt.Errorf("unsupported direction %q", dir)
	}

	if m.config.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.config.Latency):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.pinned[mv.ID+"/"+string(dir)]; ok {
		if c == nil {
			return nil, nil
		}
		cc := *c
		return &cc, nil
	}

	if m.config.ErrorRate > 0 && m.rng.Float64() < m.config.ErrorRate {
		return nil, fmt.Errorf("mock recommender: injected failure")
	}
	if m.config.MissRate > 0 && m.rng.Float64() < m.config.MissRate {
		return nil, nil
	}

	// Deterministic pick: hash the movie id and direction into the catalog,
	// skipping the movie itself.
	h := fnv.New32a()
	h.Write([]byte(mv.ID))
	h.Write([]byte(dir))
	idx := int(h.Sum32()) % len(m.catalog)
	if idx < 0 {
		idx = -idx
	}
	pick := m.catalog[idx]
	if pick.ID == mv.ID {
		pick = m.catalog[(idx+1)%len(m.catalog)]
	}

	return &Candidate{
		Movie:  pick,
		Reason: fmt.Sprintf("shares its %s with %s", DimensionLabel(dir), mv.Title),
		Score:  60 + float64(h.Sum32()%40),
	}, nil
}

func (m *Mock) FindThreeCandidates(ctx context.Context, mv film.Movie, qc film.QueryContext) (ThreeWay, error) {
	var (
		out ThreeWay
		wg  sync.WaitGroup
		mu  sync.Mutex
	)
	for _, dir := range ForwardDirections {
		wg.Add(1)
		go func(dir gesture.Direction) {
			defer wg.Done()
			c, err := m.FindCandidate(ctx, mv, dir, qc)
			if err != nil || c == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch dir {
			case gesture.DirectionLeft:
				out.Vibe = c
			case gesture.DirectionDown:
				out.Aesthetic = c
			case gesture.DirectionUp:
				out.Auteur = c
			}
		}(dir)
	}
	wg.Wait()
	return out, nil
}

func defaultCatalog() []film.Movie {
	return []film.Movie{
		{ID: "in-the-mood-for-love-2000", Title: "In the Mood for Love", Year: 2000, Director: "Wong Kar-wai", Cinematographer: "Christopher Doyle", DominantColor: "#7a1f2b", Genres: []string{"Romance", "Drama"}},
		{ID: "chungking-express-1994", Title: "Chungking Express", Year: 1994, Director: "Wong Kar-wai", Cinematographer: "Christopher Doyle", DominantColor: "#1f4d7a", Genres: []string{"Romance", "Crime"}},
		{ID: "lost-in-translation-2003", Title: "Lost in Translation", Year: 2003, Director: "Sofia Coppola", DominantColor: "#d58ca4", Genres: []string{"Drama"}},
		{ID: "drive-2011", Title: "Drive", Year: 2011, Director: "Nicolas Winding Refn", DominantColor: "#e3427d", Genres: []string{"Crime", "Thriller"}},
		{ID: "blade-runner-2049-2017", Title: "Blade Runner 2049", Year: 2017, Director: "Denis Villeneuve", Cinematographer: "Roger Deakins", DominantColor: "#c96f1e", Genres: []string{"Sci-Fi"}},
		{ID: "her-2013", Title: "Her", Year: 2013, Director: "Spike Jonze", DominantColor: "#d4584e", Genres: []string{"Romance", "Sci-Fi"}},
		{ID: "paris-texas-1984", Title: "Paris, Texas", Year: 1984, Director: "Wim Wenders", Cinematographer: "Robby Müller", DominantColor: "#2e8b57", Genres: []string{"Drama"}},
		{ID: "the-double-life-of-veronique-1991", Title: "The Double Life of Véronique", Year: 1991, Director: "Krzysztof Kieślowski", DominantColor: "#b8a13a", Genres: []string{"Drama", "Fantasy"}},
		{ID: "stalker-1979", Title: "Stalker", Year: 1979, Director: "Andrei Tarkovsky", DominantColor: "#5c5a42", Genres: []string{"Sci-Fi", "Drama"}},
		{ID: "punch-drunk-love-2002", Title: "Punch-Drunk Love", Year: 2002, Director: "Paul Thomas Anderson", DominantColor: "#3a5bb8", Genres: []string{"Romance", "Comedy"}},
		{ID: "columbus-2017", Title: "Columbus", Year: 2017, Director: "Kogonada", DominantColor: "#8a9a8b", Genres: []string{"Drama"}},
		{ID: "fallen-angels-1995", Title: "Fallen Angels", Year: 1995, Director: "Wong Kar-wai", Cinematographer: "Christopher Doyle", DominantColor: "#22306b", Genres: []string{"Crime", "Romance"}},
	}
}
