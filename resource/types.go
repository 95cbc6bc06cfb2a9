package resource

import "fmt"

// Handle is an opaque, generation-tagged reference to an arena slot.
// The low 32 bits hold the 1-based slot index, the high 32 bits the slot
// generation. Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(slot, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(slot))
}

// Slot returns the 1-based slot index.
func (h Handle) Slot() uint32 { return uint32(h) }

// Gen returns the slot generation the handle was issued for.
func (h Handle) Gen() uint32 { return uint32(h >> 32) }

// IsZero reports whether h is the reserved invalid handle.
func (h Handle) IsZero() bool { return h == 0 }

func (h Handle) String() string {
	if h == 0 {
		return "Handle(nil)"
	}
	return fmt.Sprintf("Handle(%d#%d)", h.Slot(), h.Gen())
}

// Event types for slot lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// Event represents a slot lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about slot lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by stored values that need cleanup
// when the arena is closed.
type Dropper interface {
	Drop()
}
