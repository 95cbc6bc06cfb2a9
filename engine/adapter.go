package engine

import "fmt"

// Value is an opaque handle to a value owned by the engine's collector.
type Value uint32

// Dead is the null sentinel. Acquire and Release on it are no-ops, and
// persistent references to collected objects read back as Dead.
const Dead Value = 0

// IsDead reports whether v is the null sentinel.
func (v Value) IsDead() bool { return v == Dead }

func (v Value) String() string {
	if v == Dead {
		return "Value(dead)"
	}
	return fmt.Sprintf("Value(%d)", uint32(v))
}

// DestroyFunc is called by the engine, exactly once, when an object that
// carries native info is collected. It receives the info passed to
// AttachNativeInfo.
type DestroyFunc func(info any)

// Adapter is the engine surface the lifetime layer is built on.
//
// Acquire and Release adjust the external root count of a value; a value
// with a positive count is never collected. Both must be no-ops on Dead.
//
// AttachNativeInfo stores one native info record on an object together with
// the callback the engine must invoke when that object is collected.
// NativeInfo returns the attached record, if any.
type Adapter interface {
	Acquire(v Value)
	Release(v Value)
	AttachNativeInfo(obj Value, info any, destroy DestroyFunc) error
	NativeInfo(obj Value) (any, bool)
}
