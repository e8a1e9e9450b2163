package orbit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rmax-ai/orbit/pkg/feedback"
	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/recommend"
)

// DefaultPrefetchTimeout bounds each speculative recommendation call.
const DefaultPrefetchTimeout = 15 * time.Second

// Session is the orbit navigation state machine. It owns the exploration
// history, the cursor into it, the connection graph, the transient
// transition flags and the speculative prefetch cache.
//
// A session is an explicit value owned by its call site; there is no global
// store, and independent sessions never share state. Commands are expected
// to arrive from a single event loop. Prefetch results arrive on their own
// goroutines and are folded in under the session mutex, guarded by the
// epoch check described on startPrefetch.
type Session struct {
	mu  sync.Mutex
	rec recommend.Recommender
	fb  feedback.Feedback

	qc              film.QueryContext
	notify          func()
	prefetchTimeout time.Duration
	now             func() time.Time

	active            bool
	entry             film.Movie
	current           film.Movie
	history           []HistoryNode
	historyIndex      int
	edges             []Edge
	transitioning     bool
	pendingDirection  gesture.Direction
	showConstellation bool

	cache prefetchCache
	// epoch increments on every EnterOrbit/NavigateTo/Reset. Prefetch
	// results tagged with an older epoch are dropped.
	epoch uint64
}

// Option configures a Session.
type Option func(*Session)

// WithQueryContext forwards recommendation hints on every port call.
func WithQueryContext(qc film.QueryContext) Option {
	return func(s *Session) { s.qc = qc }
}

// WithNotify registers a callback invoked (on the delivering goroutine)
// whenever a prefetch result lands, so a UI can repaint.
func WithNotify(fn func()) Option {
	return func(s *Session) { s.notify = fn }
}

// WithPrefetchTimeout bounds each speculative port call.
func WithPrefetchTimeout(d time.Duration) Option {
	return func(s *Session) { s.prefetchTimeout = d }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an inactive session bound to a recommender and a
// feedback sink. A nil feedback sink is replaced with a no-op.
func NewSession(rec recommend.Recommender, fb feedback.Feedback, opts ...Option) *Session {
	s := &Session{
		rec:             rec,
		fb:              fb,
		prefetchTimeout: DefaultPrefetchTimeout,
		now:             time.Now,
	}
	if s.fb == nil {
		s.fb = feedback.Noop{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnterOrbit activates the session on the given entry movie and arms the
// first three-way prefetch. A movie without an id is ignored.
func (s *Session) EnterOrbit(mv film.Movie) {
	if mv.ID == "" {
		return
	}

	s.mu.Lock()
	s.active = true
	s.entry = mv
	s.current = mv
	s.history = []HistoryNode{{Movie: mv, EnteredAt: s.now()}}
	s.historyIndex = 0
	s.edges = nil
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.showConstellation = false
	s.cache = prefetchCache{}
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	sessionsEntered.Inc()
	historyDepth.Set(1)
	s.startPrefetch(mv, epoch)
}

// Reset returns the session to its initial inactive value. ExitOrbit is the
// same operation. Any in-flight prefetch results are orphaned by the epoch
// bump and will be dropped on arrival.
func (s *Session) Reset() {
	s.mu.Lock()
	s.active = false
	s.entry = film.Movie{}
	s.current = film.Movie{}
	s.history = nil
	s.historyIndex = 0
	s.edges = nil
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.showConstellation = false
	s.cache = prefetchCache{}
	s.epoch++
	s.mu.Unlock()

	historyDepth.Set(0)
}

// ExitOrbit is an alias for Reset.
func (s *Session) ExitOrbit() { s.Reset() }

// NavigateTo commits a forward navigation: it truncates any redo branch,
// appends a history node and an edge, clears the prefetch cache and arms a
// new fan-out for the new current movie. It returns false without touching
// state when the session is inactive or the direction has no similarity
// dimension (right never navigates forward).
func (s *Session) NavigateTo(mv film.Movie, dir gesture.Direction, reason string, score float64) bool {
	ct, ok := ConnectionFor(dir)
	if !ok || mv.ID == "" {
		return false
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}

	from := s.current
	// Branch truncation: dropping forward history discards the redo branch
	// but leaves edges in place (see Edge).
	s.history = append(s.history[:s.historyIndex+1], HistoryNode{Movie: mv, EnteredAt: s.now()})
	s.historyIndex = len(s.history) - 1
	s.edges = append(s.edges, Edge{FromID: from.ID, ToID: mv.ID, Type: ct, Reason: reason, Score: score})
	s.current = mv
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.cache = prefetchCache{}
	s.epoch++
	epoch := s.epoch
	depth := len(s.history)
	s.mu.Unlock()

	historyDepth.Set(float64(depth))
	s.startPrefetch(mv, epoch)
	return true
}

// GoBack moves the cursor one step toward the entry movie. At the edge of
// history it returns false and changes nothing; the false return and the
// feedback call are how the UI drives its "edge reached" haptic. GoBack
// never triggers a prefetch and never touches edges.
func (s *Session) GoBack() bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	if s.historyIndex <= 0 {
		s.mu.Unlock()
		historyNavTotal.WithLabelValues("edge").Inc()
		s.fb.OnEdgeOfHistoryReached()
		return false
	}
	s.historyIndex--
	s.current = s.history[s.historyIndex].Movie
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.mu.Unlock()

	historyNavTotal.WithLabelValues("back").Inc()
	s.fb.OnHistoryNavigated()
	return true
}

// Restore replaces the session's state with a persisted history and edge
// list, activating the session and arming a prefetch for the restored
// cursor position. A record with no history is rejected; an out-of-range
// index is clamped.
func (s *Session) Restore(history []HistoryNode, historyIndex int, edges []Edge) bool {
	if len(history) == 0 {
		return false
	}
	if historyIndex < 0 {
		historyIndex = 0
	}
	if historyIndex >= len(history) {
		historyIndex = len(history) - 1
	}

	s.mu.Lock()
	s.active = true
	s.history = make([]HistoryNode, len(history))
	copy(s.history, history)
	s.edges = make([]Edge, len(edges))
	copy(s.edges, edges)
	s.historyIndex = historyIndex
	s.entry = history[0].Movie
	s.current = history[historyIndex].Movie
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.showConstellation = false
	s.cache = prefetchCache{}
	s.epoch++
	epoch := s.epoch
	mv := s.current
	depth := len(s.history)
	s.mu.Unlock()

	historyDepth.Set(float64(depth))
	s.startPrefetch(mv, epoch)
	return true
}

// JumpToNode moves the cursor to an arbitrary history index, closing the
// constellation view. It creates no nodes or edges and arms no prefetch.
// Out-of-range indices are a no-op returning false.
func (s *Session) JumpToNode(index int) bool {
	s.mu.Lock()
	if !s.active || index < 0 || index >= len(s.history) {
		s.mu.Unlock()
		return false
	}
	s.historyIndex = index
	s.current = s.history[index].Movie
	s.showConstellation = false
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.mu.Unlock()

	historyNavTotal.WithLabelValues("jump").Inc()
	s.fb.OnHistoryNavigated()
	return true
}

// ToggleSaved flips the saved flag on every history node carrying the
// movie id, so a film visited twice toggles both occurrences together.
// It returns the new saved state, or false when no node matched.
func (s *Session) ToggleSaved(movieID string) bool {
	s.mu.Lock()
	saved := false
	matched := false
	for i := range s.history {
		if s.history[i].Movie.ID == movieID {
			s.history[i].Saved = !s.history[i].Saved
			saved = s.history[i].Saved
			matched = true
		}
	}
	s.mu.Unlock()

	if matched && saved {
		s.fb.OnSaved()
	}
	return matched && saved
}

// GetSavedMovies returns the saved nodes in history order.
func (s *Session) GetSavedMovies() []HistoryNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []HistoryNode
	for _, n := range s.history {
		if n.Saved {
			out = append(out, n)
		}
	}
	return out
}

// Swipe executes a completed swipe gesture as one command: right rewinds,
// forward directions consume the prefetch cache when possible and fall
// back to a blocking single-direction port call. A swipe that produces no
// candidate aborts silently, leaving history untouched.
func (s *Session) Swipe(ctx context.Context, dir gesture.Direction) bool {
	if dir == gesture.DirectionRight {
		return s.GoBack()
	}
	committed, pending := s.BeginSwipe(dir)
	if committed {
		return true
	}
	if !pending {
		return false
	}
	return s.ResolveSwipe(ctx, dir)
}

// BeginSwipe marks the transition and consumes the prefetch cache slot for
// the direction. It returns committed=true when the cached candidate was
// navigated to immediately, or pending=true when the caller must follow up
// with ResolveSwipe (typically behind a spinner).
func (s *Session) BeginSwipe(dir gesture.Direction) (committed, pending bool) {
	ct, ok := ConnectionFor(dir)
	if !ok {
		return false, false
	}

	s.mu.Lock()
	if !s.active || s.transitioning {
		s.mu.Unlock()
		return false, false
	}
	s.transitioning = true
	s.pendingDirection = dir
	cand := s.cache.take(ct)
	s.mu.Unlock()

	if cand == nil {
		return false, true
	}

	if !s.NavigateTo(cand.Movie, dir, cand.Reason, cand.Score) {
		s.abortTransition()
		return false, false
	}
	swipeTotal.WithLabelValues(string(dir), "cache").Inc()
	s.fb.OnSwipeComplete()
	return true, false
}

// ResolveSwipe performs the blocking on-demand lookup for a swipe that
// missed the cache, then commits or aborts. All port failures are absorbed
// here; nothing propagates to the caller beyond the false return.
func (s *Session) ResolveSwipe(ctx context.Context, dir gesture.Direction) bool {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return false
	}
	mv := s.current
	qc := s.qc
	s.mu.Unlock()

	cand, err := s.rec.FindCandidate(ctx, mv, dir, qc)
	if err != nil {
		log.Printf("on-demand lookup failed for %s/%s: %v", mv.ID, dir, err)
	}
	if err != nil || cand == nil {
		swipeAbortedTotal.WithLabelValues(string(dir)).Inc()
		s.abortTransition()
		return false
	}

	if !s.NavigateTo(cand.Movie, dir, cand.Reason, cand.Score) {
		s.abortTransition()
		return false
	}
	swipeTotal.WithLabelValues(string(dir), "fetch").Inc()
	s.fb.OnSwipeComplete()
	return true
}

// HandleGesture routes a recognizer event to the matching command. Long
// press toggles saved on the current movie; pinch in opens the
// constellation, pinch out closes it.
func (s *Session) HandleGesture(ctx context.Context, ev gesture.Event) {
	switch ev.Kind {
	case gesture.KindSwipe:
		s.Swipe(ctx, ev.Direction)
	case gesture.KindLongPress:
		if cur, ok := s.Current(); ok {
			s.ToggleSaved(cur.ID)
		}
	case gesture.KindPinchIn:
		s.SetShowConstellation(true)
	case gesture.KindPinchOut:
		s.SetShowConstellation(false)
	}
}

func (s *Session) abortTransition() {
	s.mu.Lock()
	s.transitioning = false
	s.pendingDirection = gesture.DirectionNone
	s.mu.Unlock()
}

// SetTransitioning sets the transient transition flag.
func (s *Session) SetTransitioning(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitioning = v
	if !v {
		s.pendingDirection = gesture.DirectionNone
	}
}

// SetPendingDirection sets the direction currently animating.
func (s *Session) SetPendingDirection(dir gesture.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingDirection = dir
}

// SetShowConstellation toggles the constellation overlay flag.
func (s *Session) SetShowConstellation(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showConstellation = v
}

// IsActive reports whether EnterOrbit has been called since the last reset.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Current returns the movie under the cursor.
func (s *Session) Current() (film.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.active
}

// Entry returns the movie the session started from.
func (s *Session) Entry() (film.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, s.active
}

// History returns a copy of the history sequence.
func (s *Session) History() []HistoryNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryNode, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryIndex returns the cursor position.
func (s *Session) HistoryIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyIndex
}

// Edges returns a copy of the accumulated connection edges.
func (s *Session) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// IsTransitioning reports whether a swipe is mid-flight.
func (s *Session) IsTransitioning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitioning
}

// PendingDirection returns the direction of the swipe mid-flight, if any.
func (s *Session) PendingDirection() gesture.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDirection
}

// ShowConstellation reports whether the constellation overlay is open.
func (s *Session) ShowConstellation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showConstellation
}

// CandidateReady reports whether the prefetch cache holds a candidate for
// the direction, without consuming it. The TUI uses this for the direction
// hints around the poster.
func (s *Session) CandidateReady(dir gesture.Direction) bool {
	ct, ok := ConnectionFor(dir)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.peek(ct) != nil
}
