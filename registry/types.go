package registry

// Handle is an opaque reference to a live object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventReleased
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event represents an object lifecycle event.
type Event struct {
	Value  any
	Class  string
	Handle Handle
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnObjectEvent calls f(e).
func (f ObserverFunc) OnObjectEvent(e Event) { f(e) }

// Closer is optionally implemented by tracked values that must be told when
// the table is closed with the value still registered.
type Closer interface {
	Abandon()
}
