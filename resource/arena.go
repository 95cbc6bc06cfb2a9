package resource

import (
	"errors"
)

var ErrClosed = errors.New("resource arena closed")

// Arena is single-owner slot storage with generation-checked handles.
type Arena[T any] struct {
	entries   []entry[T]
	freeList  []uint32
	observers []Observer
	live      int
	closed    bool
}

type entry[T any] struct {
	value T
	gen   uint32
	valid bool
}

// NewArena creates an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{
		entries:  make([]entry[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores a value and returns its handle.
func (a *Arena[T]) Insert(value T) (Handle, error) {
	if a.closed {
		return 0, ErrClosed
	}

	var slot uint32
	if n := len(a.freeList); n > 0 {
		slot = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		a.entries = append(a.entries, entry[T]{gen: 1})
		slot = uint32(len(a.entries))
	}

	e := &a.entries[slot-1]
	e.value = value
	e.valid = true
	a.live++

	h := makeHandle(slot, e.gen)
	a.notify(Event{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

func (a *Arena[T]) lookup(h Handle) *entry[T] {
	slot := h.Slot()
	if slot == 0 || int(slot) > len(a.entries) {
		return nil
	}
	e := &a.entries[slot-1]
	if !e.valid || e.gen != h.Gen() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	if e := a.lookup(h); e != nil {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Remove frees the slot and returns (value, true) if h was live.
// The slot generation advances, so h and every copy of it go stale.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	e := a.lookup(h)
	if e == nil {
		return zero, false
	}

	value := e.value
	e.value = zero
	e.valid = false
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	a.live--
	a.freeList = append(a.freeList, h.Slot())

	a.notify(Event{Type: EventDropped, Handle: h, Value: value})
	return value, true
}

// Len returns the number of live slots.
func (a *Arena[T]) Len() int {
	return a.live
}

// Each iterates over live slots in slot order until fn returns false.
func (a *Arena[T]) Each(fn func(Handle, T) bool) {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.valid {
			continue
		}
		if !fn(makeHandle(uint32(i+1), e.gen), e.value) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (a *Arena[T]) Subscribe(o Observer) {
	a.observers = append(a.observers, o)
}

// Close drops every live value in slot order and stops accepting inserts.
// A Dropper may still Get or Remove other slots while Close runs; a slot
// removed that way is skipped.
func (a *Arena[T]) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	for i := range a.entries {
		e := &a.entries[i]
		if !e.valid {
			continue
		}
		value := e.value
		h := makeHandle(uint32(i+1), e.gen)
		if d, ok := any(value).(Dropper); ok {
			d.Drop()
		}
		if !e.valid {
			continue
		}
		var zero T
		e.value = zero
		e.valid = false
		a.notify(Event{Type: EventDropped, Handle: h, Value: value})
	}

	a.entries = nil
	a.freeList = nil
	a.observers = nil
	a.live = 0
	return nil
}

func (a *Arena[T]) notify(e Event) {
	for _, o := range a.observers {
		o.OnResourceEvent(e)
	}
}
