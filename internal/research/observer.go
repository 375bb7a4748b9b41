package research

import "time"

// Event is one progress notification. Seq increases monotonically within a
// run so consumers can deduplicate under at-least-once delivery.
type Event struct {
	State     State
	Round     int
	Timestamp time.Time
	Seq       uint64
}

// Observer receives run progress events in order. Implementations must not
// block: the orchestrator calls them synchronously between states.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
