package gesture

// Direction is a discrete swipe direction.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// Kind discriminates the semantic events a recognizer can emit.
type Kind string

const (
	KindSwipe     Kind = "swipe"
	KindLongPress Kind = "long_press"
	KindPinchIn   Kind = "pinch_in"
	KindPinchOut  Kind = "pinch_out"
)

// Event is a fully classified gesture. Direction is set only for swipes.
type Event struct {
	Kind      Kind
	Direction Direction
}

// Sink receives classified events. Implementations must not call back into
// the recognizer; events are delivered after the recognizer has settled its
// own state transition.
type Sink func(Event)
