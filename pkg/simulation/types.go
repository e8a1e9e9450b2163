package simulation

import (
	"time"
)

// Scenario describes a deterministic random walk through an orbit session.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       int    `json:"steps"`
	Seed        int64  `json:"seed"` // Deterministic seed

	// Gesture weights. They need not sum to 1; the remainder is idle steps.
	SwipeLeftWeight  float64 `json:"swipe_left_weight"`
	SwipeDownWeight  float64 `json:"swipe_down_weight"`
	SwipeUpWeight    float64 `json:"swipe_up_weight"`
	SwipeRightWeight float64 `json:"swipe_right_weight"`
	LongPressWeight  float64 `json:"long_press_weight"`
	JumpWeight       float64 `json:"jump_weight"`

	// Recommender fault injection.
	MissRate  float64       `json:"miss_rate"`
	ErrorRate float64       `json:"error_rate"`
	Latency   time.Duration `json:"latency"`

	Invariants []Invariant `json:"invariants,omitempty"`
}

type Invariant struct {
	Metric    string  `json:"metric"`    // e.g. "commit_rate", "abort_rate", "violations"
	Condition string  `json:"condition"` // e.g. ">", "<", ">=", "<="
	Value     float64 `json:"value"`
}

// Result captures the final state of a simulation run for reporting.
type Result struct {
	ScenarioName  string            `json:"scenario_name"`
	Seed          int64             `json:"seed"`
	Steps         int               `json:"steps"`
	Duration      time.Duration     `json:"duration"`
	SwipesTried   uint64            `json:"swipes_tried"`
	SwipesCommit  uint64            `json:"swipes_committed"`
	SwipesAborted uint64            `json:"swipes_aborted"`
	Rewinds       uint64            `json:"rewinds"`
	EdgeHits      uint64            `json:"edge_hits"`
	Saves         uint64            `json:"saves"`
	Jumps         uint64            `json:"jumps"`
	FinalDepth    int               `json:"final_depth"`
	FinalEdges    int               `json:"final_edges"`
	UniqueMovies  int               `json:"unique_movies"`
	Violations    []string          `json:"violations,omitempty"`
	Invariants    []InvariantResult `json:"invariants"`
	Success       bool              `json:"success"`
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Expected string `json:"expected"` // e.g. "> 0.95"
	Actual   string `json:"actual"`   // e.g. "0.98"
	Passed   bool   `json:"passed"`
}

// Scenarios returns the built-in scenarios, selectable by name.
func Scenarios() map[string]Scenario {
	return map[string]Scenario{
		"drift": {
			Name:            "drift",
			Description:     "Mostly forward exploration with the occasional save",
			Steps:           200,
			SwipeLeftWeight: 0.35, SwipeDownWeight: 0.25, SwipeUpWeight: 0.2,
			SwipeRightWeight: 0.05, LongPressWeight: 0.1,
			Invariants: []Invariant{
				{Metric: "violations", Condition: "==", Value: 0},
				{Metric: "commit_rate", Condition: ">=", Value: 0.9},
			},
		},
		"ping-pong": {
			Name:            "ping-pong",
			Description:     "Heavy rewinding and branching",
			Steps:           300,
			SwipeLeftWeight: 0.3, SwipeRightWeight: 0.45, SwipeUpWeight: 0.1,
			JumpWeight: 0.1,
			Invariants: []Invariant{
				{Metric: "violations", Condition: "==", Value: 0},
				{Metric: "edge_hit_rate", Condition: ">", Value: 0},
			},
		},
		"chaotic": {
			Name:            "chaotic",
			Description:     "Flaky recommender under a full gesture mix",
			Steps:           500,
			SwipeLeftWeight: 0.2, SwipeDownWeight: 0.2, SwipeUpWeight: 0.2,
			SwipeRightWeight: 0.15, LongPressWeight: 0.1, JumpWeight: 0.1,
			MissRate:  0.2,
			ErrorRate: 0.1,
			Invariants: []Invariant{
				{Metric: "violations", Condition: "==", Value: 0},
				{Metric: "abort_rate", Condition: ">", Value: 0},
			},
		},
	}
}
