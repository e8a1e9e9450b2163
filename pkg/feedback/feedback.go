package feedback

import "sync"

// Feedback is the fire-and-forget haptics/notification port. The session
// never observes return values; implementations must not block.
type Feedback interface {
	OnSwipeComplete()
	OnEdgeOfHistoryReached()
	OnSaved()
	OnHistoryNavigated()
}

// Noop discards all feedback.
type Noop struct{}

func (Noop) OnSwipeComplete()        {}
func (Noop) OnEdgeOfHistoryReached() {}
func (Noop) OnSaved()                {}
func (Noop) OnHistoryNavigated()     {}

// Recorder counts feedback calls, for tests.
type Recorder struct {
	mu             sync.Mutex
	swipeCompletes int
	edgeOfHistory  int
	saves          int
	historyNavs    int
}

func (r *Recorder) OnSwipeComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swipeCompletes++
}

func (r *Recorder) OnEdgeOfHistoryReached() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edgeOfHistory++
}

func (r *Recorder) OnSaved() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
}

func (r *Recorder) OnHistoryNavigated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historyNavs++
}

// Counts returns the recorded call counts in declaration order.
func (r *Recorder) Counts() (swipes, edges, saves, navs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.swipeCompletes, r.edgeOfHistory, r.saves, r.historyNavs
}
