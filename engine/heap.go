package engine

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/errors"
)

// Heap is an in-memory engine with a stop-the-world tracing collector.
//
// Objects are rooted by a positive external count (Acquire/Release) and kept
// alive transitively through properties. Collect sweeps everything not
// reachable from a rooted object, invoking the native-info destroy callback
// of each swept object once the whole sweep set has been unlinked, so
// callbacks may call back into the heap freely.
//
// Heap is not safe for concurrent use.
type Heap struct {
	objects    map[Value]*object
	next       Value
	collecting bool
	collected  uint64
}

type object struct {
	props   map[string]Value
	info    any
	destroy DestroyFunc
	roots   uint32
}

var _ Adapter = (*Heap)(nil)

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{objects: make(map[Value]*object)}
}

// NewObject allocates an unrooted object. It is collectible until something
// acquires it or a reachable object points at it.
func (h *Heap) NewObject() Value {
	h.next++
	if h.next == Dead {
		h.next++
	}
	v := h.next
	h.objects[v] = &object{}
	Logger().Debug("object allocated", zap.Uint32("value", uint32(v)))
	return v
}

// Acquire increments the external root count of v.
func (h *Heap) Acquire(v Value) {
	if o, ok := h.objects[v]; ok {
		o.roots++
	}
}

// Release decrements the external root count of v. Releasing an unrooted
// value is ignored and logged, since the count cannot go negative.
func (h *Heap) Release(v Value) {
	o, ok := h.objects[v]
	if !ok {
		return
	}
	if o.roots == 0 {
		Logger().Warn("release of unrooted value", zap.Uint32("value", uint32(v)))
		return
	}
	o.roots--
}

// AttachNativeInfo stores info on obj. Attaching twice replaces the previous
// record without invoking its destroy callback.
func (h *Heap) AttachNativeInfo(obj Value, info any, destroy DestroyFunc) error {
	o, ok := h.objects[obj]
	if !ok {
		return errors.New(errors.PhaseEngine, errors.KindNotFound).
			Op("attach_native_info").
			Value(obj).
			Detail("no live object %d", obj).
			Build()
	}
	o.info = info
	o.destroy = destroy
	return nil
}

// NativeInfo returns the record attached to obj.
func (h *Heap) NativeInfo(obj Value) (any, bool) {
	o, ok := h.objects[obj]
	if !ok || o.info == nil {
		return nil, false
	}
	return o.info, true
}

// SetProperty makes obj reference v under key, so v stays reachable while
// obj is. Setting Dead removes the property.
func (h *Heap) SetProperty(obj Value, key string, v Value) error {
	o, ok := h.objects[obj]
	if !ok {
		return errors.New(errors.PhaseEngine, errors.KindNotFound).
			Op("set_property").
			Value(obj).
			Detail("no live object %d", obj).
			Build()
	}
	if v == Dead {
		delete(o.props, key)
		return nil
	}
	if o.props == nil {
		o.props = make(map[string]Value)
	}
	o.props[key] = v
	return nil
}

// Property returns the value stored under key.
func (h *Heap) Property(obj Value, key string) (Value, bool) {
	o, ok := h.objects[obj]
	if !ok {
		return Dead, false
	}
	v, ok := o.props[key]
	return v, ok
}

// Alive reports whether v is a live object.
func (h *Heap) Alive(v Value) bool {
	_, ok := h.objects[v]
	return ok
}

// RootCount returns the external root count of v.
func (h *Heap) RootCount(v Value) uint32 {
	if o, ok := h.objects[v]; ok {
		return o.roots
	}
	return 0
}

// Len returns the number of live objects.
func (h *Heap) Len() int {
	return len(h.objects)
}

// Collected returns the total number of objects swept so far.
func (h *Heap) Collected() uint64 {
	return h.collected
}

// Objects returns the live object values in ascending order.
func (h *Heap) Objects() []Value {
	out := make([]Value, 0, len(h.objects))
	for v := range h.objects {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Collect runs a full mark and sweep and returns the number of objects
// swept. A Collect requested from inside a destroy callback returns 0.
func (h *Heap) Collect() int {
	if h.collecting {
		return 0
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	marked := make(map[Value]struct{}, len(h.objects))
	var stack []Value
	for v, o := range h.objects {
		if o.roots > 0 {
			stack = append(stack, v)
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := marked[v]; seen {
			continue
		}
		marked[v] = struct{}{}
		for _, child := range h.objects[v].props {
			if _, live := h.objects[child]; live {
				stack = append(stack, child)
			}
		}
	}

	var swept []Value
	for v := range h.objects {
		if _, ok := marked[v]; !ok {
			swept = append(swept, v)
		}
	}
	slices.Sort(swept)

	dead := make([]*object, len(swept))
	for i, v := range swept {
		dead[i] = h.objects[v]
		delete(h.objects, v)
	}
	h.collected += uint64(len(swept))

	for i, o := range dead {
		if o.destroy != nil {
			Logger().Debug("destroying native info", zap.Uint32("value", uint32(swept[i])))
			o.destroy(o.info)
		}
	}

	if len(swept) > 0 {
		Logger().Debug("heap collected",
			zap.Int("swept", len(swept)),
			zap.Int("live", len(h.objects)))
	}
	return len(swept)
}
