package simulation

import (
	"testing"
)

func TestBuiltinScenariosPass(t *testing.T) {
	for name, sc := range Scenarios() {
		sc := sc
		t.Run(name, func(t *testing.T) {
			sc.Seed = 42
			sc.Steps = 100
			res := RunScenario(sc)
			if len(res.Violations) != 0 {
				t.Fatalf("structural violations:\n%v", res.Violations)
			}
			if res.FinalDepth < 1 {
				t.Errorf("final depth = %d", res.FinalDepth)
			}
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	// Fault-free on purpose: miss and error rolls draw from the mock's rng
	// on prefetch goroutines, whose interleaving is not reproducible.
	sc := Scenarios()["drift"]
	sc.MissRate = 0
	sc.ErrorRate = 0
	sc.Seed = 7
	sc.Steps = 200

	a := RunScenario(sc)
	b := RunScenario(sc)

	if a.SwipesCommit != b.SwipesCommit || a.SwipesAborted != b.SwipesAborted ||
		a.Rewinds != b.Rewinds || a.FinalDepth != b.FinalDepth || a.FinalEdges != b.FinalEdges {
		t.Errorf("same seed produced different runs:\n%+v\n%+v", a, b)
	}
}

func TestSavesCountOnlySaveHalfOfToggle(t *testing.T) {
	// Every step long-presses the same movie, alternating save and unsave.
	sc := Scenario{
		Name:            "toggler",
		Steps:           4,
		Seed:            11,
		LongPressWeight: 1.0,
	}
	res := RunScenario(sc)
	if res.Saves != 2 {
		t.Errorf("Saves = %d, want 2 (four toggles, two of them saves)", res.Saves)
	}
	if len(res.Violations) != 0 {
		t.Errorf("violations: %v", res.Violations)
	}
}

func TestFlakyRecommenderAborts(t *testing.T) {
	sc := Scenario{
		Name:            "all-miss",
		Steps:           50,
		Seed:            3,
		SwipeLeftWeight: 1.0,
		MissRate:        1.0,
	}
	res := RunScenario(sc)
	if res.SwipesCommit != 0 {
		t.Errorf("committed %d swipes against an always-missing recommender", res.SwipesCommit)
	}
	if res.SwipesAborted != res.SwipesTried {
		t.Errorf("aborted = %d, tried = %d", res.SwipesAborted, res.SwipesTried)
	}
	if res.FinalDepth != 1 {
		t.Errorf("history grew without commits: depth %d", res.FinalDepth)
	}
	if len(res.Violations) != 0 {
		t.Errorf("violations: %v", res.Violations)
	}
}
