package orbit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rmax-ai/orbit/pkg/film"
	"github.com/rmax-ai/orbit/pkg/gesture"
	"github.com/rmax-ai/orbit/pkg/recommend"
)

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// The cache-source swipe counter must move only on a confirmed commit: a
// cached candidate that NavigateTo rejects (here, one without a movie id)
// aborts the transition without counting.
func TestCacheSwipeMetricCountsOnlyCommits(t *testing.T) {
	counter := swipeTotal.WithLabelValues(string(gesture.DirectionLeft), "cache")

	rec := newStubRec()
	s := newTestSession(t, rec, nil)
	s.EnterOrbit(movieA)

	before := testutil.ToFloat64(counter)
	s.applyPrefetch(s.currentEpoch(), ConnectionVibe, &recommend.Candidate{Movie: film.Movie{}})

	committed, pending := s.BeginSwipe(gesture.DirectionLeft)
	if committed || pending {
		t.Fatalf("BeginSwipe = (%v, %v), want an aborted swipe", committed, pending)
	}
	if got := testutil.ToFloat64(counter); got != before {
		t.Errorf("counter moved on an aborted cache swipe: %v -> %v", before, got)
	}
	if s.IsTransitioning() {
		t.Error("transition flag left set after abort")
	}

	s.applyPrefetch(s.currentEpoch(), ConnectionVibe, &recommend.Candidate{Movie: movieB, Reason: "r1", Score: 80})
	committed, _ = s.BeginSwipe(gesture.DirectionLeft)
	if !committed {
		t.Fatal("expected the valid cached candidate to commit")
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("counter = %v, want %v after one commit", got, before+1)
	}
}

func TestPrefetchAppliedAndConsumedOnce(t *testing.T) {
	s := newTestSession(t, nil, nil)
	s.EnterOrbit(movieA)

	cand := &recommend.Candidate{Movie: movieB, Reason: "r", Score: 75}
	s.applyPrefetch(s.currentEpoch(), ConnectionVibe, cand)

	if !s.CandidateReady(gesture.DirectionLeft) {
		t.Fatal("cache slot should be populated")
	}
	// Peeking must not consume.
	if !s.CandidateReady(gesture.DirectionLeft) {
		t.Fatal("peek consumed the slot")
	}

	committed, pending := s.BeginSwipe(gesture.DirectionLeft)
	if !committed || pending {
		t.Fatalf("cached swipe should commit immediately (committed=%v pending=%v)", committed, pending)
	}
	if cur, _ := s.Current(); cur.ID != "b" {
		t.Errorf("current = %q, want b", cur.ID)
	}
	checkInvariants(t, s)
}

func TestStalePrefetchDropped(t *testing.T) {
	s := newTestSession(t, nil, nil)
	s.EnterOrbit(movieA)
	stale := s.currentEpoch()

	// Navigation supersedes the outstanding fan-out.
	s.NavigateTo(movieB, gesture.DirectionLeft, "", 0)

	s.applyPrefetch(stale, ConnectionAuteur, &recommend.Candidate{Movie: movieC})
	if s.CandidateReady(gesture.DirectionUp) {
		t.Fatal("stale fan-out result must not land in the cache")
	}

	// A result tagged with the current epoch still applies.
	s.applyPrefetch(s.currentEpoch(), ConnectionAuteur, &recommend.Candidate{Movie: movieC})
	if !s.CandidateReady(gesture.DirectionUp) {
		t.Fatal("current-epoch result should apply")
	}
}

func TestPrefetchDroppedAfterReset(t *testing.T) {
	s := newTestSession(t, nil, nil)
	s.EnterOrbit(movieA)
	stale := s.currentEpoch()
	s.Reset()

	s.applyPrefetch(stale, ConnectionVibe, &recommend.Candidate{Movie: movieB})
	s.applyPrefetch(s.currentEpoch(), ConnectionVibe, &recommend.Candidate{Movie: movieB})
	if s.CandidateReady(gesture.DirectionLeft) {
		t.Fatal("inactive session must not accept prefetch results")
	}
}

func TestNavigateClearsAllSlots(t *testing.T) {
	s := newTestSession(t, nil, nil)
	s.EnterOrbit(movieA)

	epoch := s.currentEpoch()
	s.applyPrefetch(epoch, ConnectionVibe, &recommend.Candidate{Movie: movieB})
	s.applyPrefetch(epoch, ConnectionAesthetic, &recommend.Candidate{Movie: movieC})
	s.applyPrefetch(epoch, ConnectionAuteur, &recommend.Candidate{Movie: movieD})

	s.NavigateTo(movieX, gesture.DirectionDown, "", 0)

	for _, dir := range recommend.ForwardDirections {
		if s.CandidateReady(dir) {
			t.Errorf("slot for %s survived NavigateTo", dir)
		}
	}
}

func TestFanOutPopulatesSlots(t *testing.T) {
	rec := newStubRec()
	rec.set("a", gesture.DirectionLeft, &recommend.Candidate{Movie: movieB, Reason: "vibe"})
	rec.set("a", gesture.DirectionDown, &recommend.Candidate{Movie: movieC, Reason: "aesthetic"})
	rec.set("a", gesture.DirectionUp, &recommend.Candidate{Movie: movieD, Reason: "auteur"})

	var applied int32
	done := make(chan struct{})
	s := NewSession(rec, nil,
		WithPrefetchTimeout(time.Second),
		WithNotify(func() {
			if atomic.AddInt32(&applied, 1) == 3 {
				close(done)
			}
		}),
	)
	s.EnterOrbit(movieA)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fan-out did not populate all three slots")
	}
	for _, dir := range recommend.ForwardDirections {
		if !s.CandidateReady(dir) {
			t.Errorf("slot for %s not populated", dir)
		}
	}
}

func TestLateFanOutFromPreviousMovieIsDropped(t *testing.T) {
	rec := newStubRec()
	rec.gate = make(chan struct{})
	rec.set("a", gesture.DirectionLeft, &recommend.Candidate{Movie: movieX, Reason: "stale answer"})
	rec.set("b", gesture.DirectionLeft, &recommend.Candidate{Movie: movieC, Reason: "fresh answer"})
	rec.set("b", gesture.DirectionDown, &recommend.Candidate{Movie: movieC})
	rec.set("b", gesture.DirectionUp, &recommend.Candidate{Movie: movieC})

	var applied int32
	done := make(chan struct{})
	s := NewSession(rec, nil,
		WithPrefetchTimeout(time.Second),
		WithNotify(func() {
			if atomic.AddInt32(&applied, 1) == 3 {
				close(done)
			}
		}),
	)

	s.EnterOrbit(movieA)
	// Navigate away while the fan-out for a is still blocked.
	if !s.NavigateTo(movieB, gesture.DirectionUp, "", 0) {
		t.Fatal("navigate failed")
	}
	// Release everything: the a-results race in with a superseded epoch,
	// the b-results carry the current epoch.
	close(rec.gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fresh fan-out did not settle")
	}

	s.mu.Lock()
	vibe := s.cache.vibe
	s.mu.Unlock()
	if vibe == nil {
		t.Fatal("vibe slot empty")
	}
	if vibe.Reason != "fresh answer" {
		t.Fatalf("vibe slot holds %q, want the fresh answer", vibe.Reason)
	}
}

func TestGoBackAndJumpTriggerNoFanOut(t *testing.T) {
	rec := newStubRec()
	s := NewSession(rec, nil, WithPrefetchTimeout(time.Second))
	s.EnterOrbit(movieA)
	s.NavigateTo(movieB, gesture.DirectionLeft, "", 0)

	// Wait for both fan-outs (3 calls each) to finish.
	deadline := time.Now().Add(2 * time.Second)
	for rec.callCount() < 6 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.callCount() != 6 {
		t.Fatalf("expected 6 prefetch calls, got %d", rec.callCount())
	}

	s.GoBack()
	s.JumpToNode(1)
	time.Sleep(50 * time.Millisecond)

	if got := rec.callCount(); got != 6 {
		t.Errorf("replaying history issued %d extra recommendation calls", got-6)
	}
}

func TestSwipeConsumesSlotExactlyOnce(t *testing.T) {
	s := newTestSession(t, newStubRec(), nil)
	s.EnterOrbit(movieA)
	s.applyPrefetch(s.currentEpoch(), ConnectionAesthetic, &recommend.Candidate{Movie: movieB})

	committed, _ := s.BeginSwipe(gesture.DirectionDown)
	if !committed {
		t.Fatal("first swipe should hit the cache")
	}

	// The slot was consumed and the cache cleared by NavigateTo; a second
	// swipe in the same direction must fall back to a fetch (which misses).
	if ok := s.Swipe(context.Background(), gesture.DirectionDown); ok {
		t.Fatal("second swipe should miss")
	}
}
