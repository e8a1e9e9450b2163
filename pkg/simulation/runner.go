// Package simulation drives an orbit session through a seeded random walk
// of gestures against the mock recommender, checking structural session
// invariants after every step. It exists to shake out state machine bugs
// that unit tests with hand-picked sequences miss.
package simulation

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/rmax-ai/orbit/pkg/feedback"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/orbit"
	"github.com/rmax-ai/orbit/pkg/recommend"
)

// RunScenario executes the scenario and returns its report.
func RunScenario(s Scenario) Result {
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}
	if s.Steps == 0 {
		s.Steps = 100
	}

	log.Printf("Running scenario: %s (seed: %d, steps: %d)", s.Name, s.Seed, s.Steps)

	rng := rand.New(rand.NewSource(s.Seed))
	mock := recommend.NewMock(recommend.MockConfig{
		Latency:   s.Latency,
		MissRate:  s.MissRate,
		ErrorRate: s.ErrorRate,
		Seed:      s.Seed,
	})
	rec := &feedback.Recorder{}
	session := orbit.NewSession(mock, rec, orbit.WithPrefetchTimeout(time.Second))

	res := Result{
		ScenarioName: s.Name,
		Seed:         s.Seed,
		Steps:        s.Steps,
	}

	catalog := mock.Catalog()
	entry := catalog[rng.Intn(len(catalog))]
	session.EnterOrbit(entry)

	ctx := context.Background()
	start := time.Now()
	prevEdges := 0

	for step := 0; step < s.Steps; step++ {
		roll := rng.Float64()
		switch {
		case roll < s.SwipeLeftWeight:
			res.SwipesTried++
			if session.Swipe(ctx, gesture.DirectionLeft) {
				res.SwipesCommit++
			} else {
				res.SwipesAborted++
			}
		case roll < s.SwipeLeftWeight+s.SwipeDownWeight:
			res.SwipesTried++
			if session.Swipe(ctx, gesture.DirectionDown) {
				res.SwipesCommit++
			} else {
				res.SwipesAborted++
			}
		case roll < s.SwipeLeftWeight+s.SwipeDownWeight+s.SwipeUpWeight:
			res.SwipesTried++
			if session.Swipe(ctx, gesture.DirectionUp) {
				res.SwipesCommit++
			} else {
				res.SwipesAborted++
			}
		case roll < s.SwipeLeftWeight+s.SwipeDownWeight+s.SwipeUpWeight+s.SwipeRightWeight:
			if session.Swipe(ctx, gesture.DirectionRight) {
				res.Rewinds++
			} else {
				res.EdgeHits++
			}
		case roll < s.SwipeLeftWeight+s.SwipeDownWeight+s.SwipeUpWeight+s.SwipeRightWeight+s.LongPressWeight:
			// A long press toggles; the save count comes from the feedback
			// sink, which only fires on the save half of the toggle.
			session.HandleGesture(ctx, gesture.Event{Kind: gesture.KindLongPress})
		case roll < s.SwipeLeftWeight+s.SwipeDownWeight+s.SwipeUpWeight+s.SwipeRightWeight+s.LongPressWeight+s.JumpWeight:
			if n := len(session.History()); n > 0 {
				if session.JumpToNode(rng.Intn(n)) {
					res.Jumps++
				}
			}
		default:
			// Idle step: the user is looking at the poster.
		}

		if v := checkStructure(session, prevEdges, step); v != "" {
			res.Violations = append(res.Violations, v)
		}
		prevEdges = len(session.Edges())
	}

	res.Duration = time.Since(start)
	res.FinalDepth = len(session.History())
	res.FinalEdges = prevEdges
	res.UniqueMovies = uniqueMovies(session)
	_, _, saves, _ := rec.Counts()
	res.Saves = uint64(saves)

	evaluateInvariants(&res, s.Invariants)

	res.Success = len(res.Violations) == 0
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
			break
		}
	}
	return res
}

// checkStructure verifies the session's structural invariants. It returns an
// empty string when everything holds.
func checkStructure(s *orbit.Session, prevEdges, step int) string {
	history := s.History()
	idx := s.HistoryIndex()
	edges := s.Edges()

	if !s.IsActive() {
		return fmt.Sprintf("step %d: session went inactive", step)
	}
	if len(history) == 0 {
		return fmt.Sprintf("step %d: active session with empty history", step)
	}
	if idx < 0 || idx >= len(history) {
		return fmt.Sprintf("step %d: cursor %d out of range [0,%d)", step, idx, len(history))
	}
	cur, ok := s.Current()
	if !ok || cur.ID != history[idx].Movie.ID {
		return fmt.Sprintf("step %d: current %q does not match history[%d] %q", step, cur.ID, idx, history[idx].Movie.ID)
	}
	// Edges are append-only; branching must never prune them.
	if len(edges) < prevEdges {
		return fmt.Sprintf("step %d: edge list shrank from %d to %d", step, prevEdges, len(edges))
	}
	for _, e := range edges {
		if e.FromID == "" || e.ToID == "" {
			return fmt.Sprintf("step %d: edge with empty endpoint %+v", step, e)
		}
	}
	return ""
}

func uniqueMovies(s *orbit.Session) int {
	seen := make(map[string]struct{})
	for _, n := range s.History() {
		seen[n.Movie.ID] = struct{}{}
	}
	return len(seen)
}

func evaluateInvariants(res *Result, invariants []Invariant) {
	for _, inv := range invariants {
		var actual float64
		switch inv.Metric {
		case "commit_rate":
			if res.SwipesTried > 0 {
				actual = float64(res.SwipesCommit) / float64(res.SwipesTried)
			}
		case "abort_rate":
			if res.SwipesTried > 0 {
				actual = float64(res.SwipesAborted) / float64(res.SwipesTried)
			}
		case "edge_hit_rate":
			if total := res.Rewinds + res.EdgeHits; total > 0 {
				actual = float64(res.EdgeHits) / float64(total)
			}
		case "violations":
			actual = float64(len(res.Violations))
		case "final_depth":
			actual = float64(res.FinalDepth)
		default:
			actual = 0
		}

		var passed bool
		switch inv.Condition {
		case ">":
			passed = actual > inv.Value
		case ">=":
			passed = actual >= inv.Value
		case "<":
			passed = actual < inv.Value
		case "<=":
			passed = actual <= inv.Value
		case "==":
			passed = math.Abs(actual-inv.Value) < 0.0001
		}

		res.Invariants = append(res.Invariants, InvariantResult{
			Metric:   inv.Metric,
			Expected: fmt.Sprintf("%s %.2f", inv.Condition, inv.Value),
			Actual:   fmt.Sprintf("%.4f", actual),
			Passed:   passed,
		})
	}
}
