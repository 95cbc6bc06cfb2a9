package napi

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/resource"
)

// Reference is a persistent handle to an engine value. The zero Reference
// is invalid.
type Reference resource.Handle

// IsZero reports whether r is the invalid zero Reference.
func (r Reference) IsZero() bool { return r == 0 }

func (r Reference) String() string {
	return fmt.Sprintf("Reference(%d#%d)", resource.Handle(r).Slot(), resource.Handle(r).Gen())
}

// RefState is the tagged lifetime state of a Reference.
type RefState uint8

const (
	RefInvalid RefState = iota
	RefStrong
	RefWeak
	RefDead
)

func (s RefState) String() string {
	switch s {
	case RefStrong:
		return "strong"
	case RefWeak:
		return "weak"
	case RefDead:
		return "dead"
	default:
		return "invalid"
	}
}

type refNode struct {
	value    engine.Value
	owner    resource.Handle
	prev     resource.Handle
	next     resource.Handle
	refcount uint32
	state    RefState
}

func liveState(refcount uint32) RefState {
	if refcount > 0 {
		return RefStrong
	}
	return RefWeak
}

func (e *Env) node(op string, ref Reference) (*refNode, error) {
	if err := e.check(errors.PhaseReference, op); err != nil {
		return nil, err
	}
	node, ok := e.refs.Get(resource.Handle(ref))
	if !ok {
		return nil, errors.New(errors.PhaseReference, errors.KindInvalidArg).
			Op(op).
			Value(ref).
			Detail("%v is not a live reference", ref).
			Build()
	}
	return node, nil
}

// CreateReference registers a new reference to obj with the given initial
// refcount and acquires obj that many times. A zero count yields a weak
// reference.
func (e *Env) CreateReference(obj engine.Value, initial uint32) (Reference, error) {
	const op = "create_reference"
	if err := e.check(errors.PhaseReference, op); err != nil {
		return 0, err
	}
	if obj.IsDead() {
		return 0, errors.InvalidArg(errors.PhaseReference, op, "cannot reference the dead value")
	}

	info, err := e.getOrCreateInfo(obj)
	if err != nil {
		return 0, err
	}

	var tail *refNode
	if !info.refEnd.IsZero() {
		var ok bool
		if tail, ok = e.refs.Get(info.refEnd); !ok {
			e.fatal("reference list tail is freed", zap.Stringer("ref", info.refEnd))
		}
	}

	node := &refNode{
		value:    obj,
		owner:    info.handle,
		prev:     info.refEnd,
		refcount: initial,
		state:    liveState(initial),
	}
	h, err := e.refs.Insert(node)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseReference, errors.KindGenericFailure, err, "allocate reference")
	}

	if tail == nil {
		info.refStart = h
	} else {
		tail.next = h
	}
	info.refEnd = h

	for i := uint32(0); i < initial; i++ {
		e.adapter.Acquire(obj)
	}

	e.logger.Debug("reference created",
		zap.Stringer("ref", h),
		zap.Uint32("object", uint32(obj)),
		zap.Uint32("refcount", initial))
	return Reference(h), nil
}

// ReferenceRef increments the refcount and returns the new count. A dead
// reference can still be ref'd; acquiring the dead value is a no-op.
func (e *Env) ReferenceRef(ref Reference) (uint32, error) {
	const op = "reference_ref"
	node, err := e.node(op, ref)
	if err != nil {
		return 0, err
	}
	if node.refcount == math.MaxUint32 {
		return 0, errors.New(errors.PhaseReference, errors.KindInvalidArg).
			Op(op).
			Value(ref).
			Detail("refcount overflow").
			Build()
	}

	node.refcount++
	e.adapter.Acquire(node.value)
	if node.state == RefWeak {
		node.state = RefStrong
	}
	return node.refcount, nil
}

// ReferenceUnref decrements the refcount and returns the new count. It fails
// without side effects when the count is already zero.
func (e *Env) ReferenceUnref(ref Reference) (uint32, error) {
	const op = "reference_unref"
	node, err := e.node(op, ref)
	if err != nil {
		return 0, err
	}
	if node.refcount == 0 {
		return 0, errors.Underflow(errors.PhaseReference, op, node.refcount)
	}

	node.refcount--
	e.adapter.Release(node.value)
	if node.refcount == 0 && node.state == RefStrong {
		node.state = RefWeak
	}
	return node.refcount, nil
}

// GetReferenceValue returns the referenced value, which is engine.Dead once
// the object has been collected.
func (e *Env) GetReferenceValue(ref Reference) (engine.Value, error) {
	node, err := e.node("get_reference_value", ref)
	if err != nil {
		return engine.Dead, err
	}
	return node.value, nil
}

// ReferenceCount returns the current refcount.
func (e *Env) ReferenceCount(ref Reference) (uint32, error) {
	node, err := e.node("reference_count", ref)
	if err != nil {
		return 0, err
	}
	return node.refcount, nil
}

// ReferenceState returns the tagged state of ref.
func (e *Env) ReferenceState(ref Reference) (RefState, error) {
	node, err := e.node("reference_state", ref)
	if err != nil {
		return RefInvalid, err
	}
	return node.state, nil
}

// DeleteReference unlinks ref from its object's list, releases every count it
// still holds and frees it. Deleting a dead reference skips the unlink and
// releases nothing, so a reference that outlived its object is freed exactly
// once.
func (e *Env) DeleteReference(ref Reference) error {
	const op = "delete_reference"
	node, err := e.node(op, ref)
	if err != nil {
		return err
	}
	h := resource.Handle(ref)

	if node.state != RefDead {
		// The owner record outlives the engine's view of the object until
		// destroyInfo runs, so a finalizer may delete references to objects
		// swept in the same collection.
		info, ok := e.infos.Get(node.owner)
		if !ok {
			return errors.GenericFailure(errors.PhaseReference, op, "owner info is freed")
		}
		if !e.listContains(info, h) {
			return errors.New(errors.PhaseReference, errors.KindInvalidArg).
				Op(op).
				Value(ref).
				Detail("%v is not on the reference list of object %d", ref, node.value).
				Build()
		}
		e.unlink(info, h, node)

		for i := uint32(0); i < node.refcount; i++ {
			e.adapter.Release(node.value)
		}
	}

	e.refs.Remove(h)
	e.logger.Debug("reference deleted",
		zap.Stringer("ref", h),
		zap.Stringer("state", node.state))
	return nil
}

// ReferencesOf returns the references registered on obj, head to tail.
func (e *Env) ReferencesOf(obj engine.Value) ([]Reference, error) {
	if err := e.check(errors.PhaseReference, "references_of"); err != nil {
		return nil, err
	}
	info, ok, err := e.tryGetInfo(obj)
	if err != nil || !ok {
		return nil, err
	}
	var out []Reference
	e.walk(info, func(h resource.Handle, _ *refNode) bool {
		out = append(out, Reference(h))
		return true
	})
	return out, nil
}

// LiveReferences returns the number of references not yet deleted,
// including dead ones.
func (e *Env) LiveReferences() int {
	return e.refs.Len()
}

// walk visits the list of info head to tail. A list longer than the number of
// allocated references has a cycle and is fatal.
func (e *Env) walk(info *objectInfo, fn func(resource.Handle, *refNode) bool) {
	limit := e.refs.Len()
	steps := 0
	for cur := info.refStart; !cur.IsZero(); {
		if steps++; steps > limit {
			e.fatal("reference list has a cycle", zap.Stringer("info", info.handle))
		}
		node, ok := e.refs.Get(cur)
		if !ok {
			e.fatal("reference list links a freed node", zap.Stringer("ref", cur))
		}
		if !fn(cur, node) {
			return
		}
		cur = node.next
	}
}

func (e *Env) listContains(info *objectInfo, h resource.Handle) bool {
	found := false
	e.walk(info, func(cur resource.Handle, _ *refNode) bool {
		found = cur == h
		return !found
	})
	return found
}

func (e *Env) unlink(info *objectInfo, h resource.Handle, node *refNode) {
	if info.refStart == h {
		info.refStart = node.next
	}
	if info.refEnd == h {
		info.refEnd = node.prev
	}
	if !node.prev.IsZero() {
		prev, ok := e.refs.Get(node.prev)
		if !ok || prev.next != h {
			e.fatal("reference prev link is inconsistent", zap.Stringer("ref", h))
		}
		prev.next = node.next
	}
	if !node.next.IsZero() {
		next, ok := e.refs.Get(node.next)
		if !ok || next.prev != h {
			e.fatal("reference next link is inconsistent", zap.Stringer("ref", h))
		}
		next.prev = node.prev
	}
	node.prev, node.next = 0, 0
}

// verifyRefList checks the prev/next and head/tail invariants of obj's list.
func (e *Env) verifyRefList(obj engine.Value) error {
	info, ok, err := e.tryGetInfo(obj)
	if err != nil || !ok {
		return err
	}
	var prev resource.Handle
	e.walk(info, func(cur resource.Handle, node *refNode) bool {
		if node.prev != prev {
			err = fmt.Errorf("ref %v: prev is %v, want %v", cur, node.prev, prev)
			return false
		}
		if node.owner != info.handle {
			err = fmt.Errorf("ref %v: owner is %v, want %v", cur, node.owner, info.handle)
			return false
		}
		prev = cur
		return true
	})
	if err != nil {
		return err
	}
	if info.refEnd != prev {
		return fmt.Errorf("list tail is %v, want %v", info.refEnd, prev)
	}
	return nil
}
