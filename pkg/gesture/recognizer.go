package gesture

import (
	"math"
	"sync"
	"time"
)

const (
	// SwipeThresholdRatio scales the shorter viewport axis into the minimum
	// offset a drag must cover to classify as a swipe.
	SwipeThresholdRatio = 0.3
	// LongPressDelay is how long a press must be held before it fires.
	LongPressDelay = 500 * time.Millisecond
	// LongPressSlop is the movement on either axis that cancels a pending
	// long press.
	LongPressSlop = 20.0
	// PinchThreshold is the minimum |1 - scale| for a pinch to resolve.
	PinchThreshold = 0.25
)

// Timer is a single-shot cancellable timer handle. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// TimerFactory schedules fn to run once after d. Tests inject a manual
// implementation; the default is time.AfterFunc.
type TimerFactory func(d time.Duration, fn func()) Timer

func defaultTimerFactory(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Classify maps a final drag offset to a direction given the viewport size.
// The horizontal axis wins ties on magnitude. Offsets below the threshold
// classify as DirectionNone.
func Classify(dx, dy, viewportW, viewportH float64) Direction {
	threshold := SwipeThresholdRatio * math.Min(viewportW, viewportH)
	if math.Abs(dx) >= math.Abs(dy) {
		switch {
		case dx < -threshold:
			return DirectionLeft
		case dx > threshold:
			return DirectionRight
		}
		return DirectionNone
	}
	switch {
	case dy < -threshold:
		return DirectionUp
	case dy > threshold:
		return DirectionDown
	}
	return DirectionNone
}

type recognizerState int

const (
	stateIdle recognizerState = iota
	stateDragging
	statePinching
)

// Recognizer converts raw pointer and touch input into discrete gesture
// events. It has no knowledge of what the events drive; a Sink receives
// Swipe, LongPress and Pinch events as they resolve.
//
// The long-press timer fires on its own goroutine when the default factory
// is used, so all state is mutex-guarded. A gesture sequence number makes a
// late fire from an already-cancelled timer a no-op.
type Recognizer struct {
	mu       sync.Mutex
	sink     Sink
	newTimer TimerFactory

	viewportW float64
	viewportH float64

	state recognizerState
	seq   uint64

	startX, startY float64
	curX, curY     float64

	longPress      Timer
	longPressFired bool

	pinchInitial float64
	pinchCurrent float64
}

// NewRecognizer creates a recognizer for the given viewport. The sink must
// be non-nil.
func NewRecognizer(viewportW, viewportH float64, sink Sink) *Recognizer {
	return &Recognizer{
		sink:      sink,
		newTimer:  defaultTimerFactory,
		viewportW: viewportW,
		viewportH: viewportH,
	}
}

// SetTimerFactory replaces the long-press timer source. Intended for tests.
func (r *Recognizer) SetTimerFactory(f TimerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newTimer = f
}

// SetViewport updates the viewport dimensions used for swipe thresholds.
func (r *Recognizer) SetViewport(w, h float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewportW = w
	r.viewportH = h
}

// PointerDown begins a drag gesture and arms the long-press timer.
func (r *Recognizer) PointerDown(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelTimerLocked()
	r.state = stateDragging
	r.seq++
	r.startX, r.startY = x, y
	r.curX, r.curY = x, y
	r.longPressFired = false

	seq := r.seq
	r.longPress = r.newTimer(LongPressDelay, func() {
		r.longPressElapsed(seq)
	})
}

// PointerMove updates the drag position. Movement past LongPressSlop on
// either axis cancels the pending long press.
func (r *Recognizer) PointerMove(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateDragging {
		return
	}
	r.curX, r.curY = x, y
	if math.Abs(x-r.startX) > LongPressSlop || math.Abs(y-r.startY) > LongPressSlop {
		r.cancelTimerLocked()
	}
}

// PointerUp ends the drag. The gesture resolves to a swipe, or to nothing
// when below threshold or when a long press already fired for it.
func (r *Recognizer) PointerUp(x, y float64) {
	r.mu.Lock()

	if r.state != stateDragging {
		r.mu.Unlock()
		return
	}
	r.cancelTimerLocked()
	r.state = stateIdle

	fired := r.longPressFired
	r.longPressFired = false
	dx := x - r.startX
	dy := y - r.startY
	dir := Classify(dx, dy, r.viewportW, r.viewportH)
	r.mu.Unlock()

	if fired || dir == DirectionNone {
		// Spring back: no event.
		return
	}
	r.sink(Event{Kind: KindSwipe, Direction: dir})
}

// Cancel aborts any in-flight gesture without emitting an event.
func (r *Recognizer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelTimerLocked()
	r.state = stateIdle
	r.longPressFired = false
}

// PinchStart begins a two-touch pinch with the given inter-touch distance.
// Any drag in progress is abandoned without emitting.
func (r *Recognizer) PinchStart(initialDistance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if initialDistance <= 0 {
		return
	}
	r.cancelTimerLocked()
	r.state = statePinching
	r.seq++
	r.pinchInitial = initialDistance
	r.pinchCurrent = initialDistance
}

// PinchMove updates the current inter-touch distance.
func (r *Recognizer) PinchMove(distance float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != statePinching {
		return
	}
	r.pinchCurrent = distance
}

// PinchEnd resolves the pinch. Scale changes below PinchThreshold emit
// nothing.
func (r *Recognizer) PinchEnd() {
	r.mu.Lock()
	if r.state != statePinching {
		r.mu.Unlock()
		return
	}
	r.state = stateIdle
	scale := r.pinchCurrent / r.pinchInitial
	r.mu.Unlock()

	if math.Abs(1-scale) < PinchThreshold {
		return
	}
	if scale < 1 {
		r.sink(Event{Kind: KindPinchIn})
		return
	}
	r.sink(Event{Kind: KindPinchOut})
}

// longPressElapsed is the timer callback. It emits LongPress only when the
// originating gesture is still the active drag.
func (r *Recognizer) longPressElapsed(seq uint64) {
	r.mu.Lock()
	if r.state != stateDragging || r.seq != seq || r.longPress == nil {
		r.mu.Unlock()
		return
	}
	r.longPress = nil
	r.longPressFired = true
	r.mu.Unlock()

	r.sink(Event{Kind: KindLongPress})
}

// cancelTimerLocked stops and discards the pending long-press timer.
// Must be called with r.mu held.
func (r *Recognizer) cancelTimerLocked() {
	if r.longPress != nil {
		r.longPress.Stop()
		r.longPress = nil
	}
}
