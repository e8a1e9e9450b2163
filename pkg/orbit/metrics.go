package orbit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// swipeTotal counts committed forward navigations by direction and by
	// whether the candidate came from the prefetch cache or a blocking fetch.
	swipeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_swipe_total",
			Help: "Committed forward navigations",
		},
		[]string{"direction", "source"},
	)

	// swipeAbortedTotal counts swipes that produced no candidate.
	swipeAbortedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_swipe_aborted_total",
			Help: "Swipes aborted because no candidate was found",
		},
		[]string{"direction"},
	)

	// prefetchTotal counts fan-out outcomes: applied, stale, miss, error.
	prefetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_prefetch_total",
			Help: "Prefetch fan-out results by outcome",
		},
		[]string{"status"},
	)

	// historyNavTotal counts back/jump navigations and edge-of-history hits.
	historyNavTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_history_nav_total",
			Help: "History navigations by kind",
		},
		[]string{"kind"},
	)

	// historyDepth tracks the current history length.
	historyDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbit_history_depth",
			Help: "Current exploration history length",
		},
	)

	// sessionsEntered counts EnterOrbit calls.
	sessionsEntered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbit_sessions_entered_total",
			Help: "Total orbit sessions entered",
		},
	)
)

func init() {
	prometheus.MustRegister(swipeTotal)
	prometheus.MustRegister(swipeAbortedTotal)
	prometheus.MustRegister(prefetchTotal)
	prometheus.MustRegister(historyNavTotal)
	prometheus.MustRegister(historyDepth)
	prometheus.MustRegister(sessionsEntered)
}
