package napi

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/resource"
)

// Finalizer is run once when a wrapped or finalizable object is collected.
// data and hint are the values registered with it.
type Finalizer func(env *Env, data, hint any)

// objectInfo is the per-object record attached to engine objects. The engine
// stores only its arena handle.
type objectInfo struct {
	env          *Env
	finalize     Finalizer
	nativeObject any
	finalizeHint any
	handle       resource.Handle
	refStart     resource.Handle
	refEnd       resource.Handle
	obj          engine.Value
	wrapped      bool
}

// tryGetInfo looks up the info attached to obj without creating one.
func (e *Env) tryGetInfo(obj engine.Value) (*objectInfo, bool, error) {
	raw, ok := e.adapter.NativeInfo(obj)
	if !ok {
		return nil, false, nil
	}
	h, ok := raw.(resource.Handle)
	if !ok {
		return nil, false, errors.New(errors.PhaseInfo, errors.KindGenericFailure).
			Op("get_native_info").
			Value(obj).
			Detail("object %d carries foreign native info %T", obj, raw).
			Build()
	}
	info, ok := e.infos.Get(h)
	if !ok {
		return nil, false, errors.New(errors.PhaseInfo, errors.KindGenericFailure).
			Op("get_native_info").
			Value(obj).
			Detail("native info %v of object %d is not registered", h, obj).
			Build()
	}
	return info, true, nil
}

// getOrCreateInfo returns the info attached to obj, attaching a fresh one
// when there is none.
func (e *Env) getOrCreateInfo(obj engine.Value) (*objectInfo, error) {
	if info, ok, err := e.tryGetInfo(obj); err != nil || ok {
		return info, err
	}

	info := &objectInfo{env: e, obj: obj}
	h, err := e.infos.Insert(info)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInfo, errors.KindGenericFailure, err, "allocate native info")
	}
	info.handle = h

	if err := e.adapter.AttachNativeInfo(obj, h, e.destroyInfo); err != nil {
		e.infos.Remove(h)
		return nil, errors.Wrap(errors.PhaseInfo, errors.KindGenericFailure, err, "attach native info")
	}

	e.logger.Debug("native info created",
		zap.Uint32("object", uint32(obj)),
		zap.Stringer("info", h))
	return info, nil
}

// destroyInfo is the engine destroy callback. Every reference still on the
// object's list turns dead, then the finalizer runs, then the record is freed.
func (e *Env) destroyInfo(raw any) {
	h, ok := raw.(resource.Handle)
	if !ok {
		e.fatal("destroy callback received foreign native info")
	}
	info, ok := e.infos.Get(h)
	if !ok {
		e.fatal("native info destroyed twice", zap.Stringer("info", h))
	}

	dead := e.killReferences(info)
	e.logger.Debug("native info destroyed",
		zap.Uint32("object", uint32(info.obj)),
		zap.Int("dead_references", dead))

	info.runFinalizer()
	e.infos.Remove(h)
}

// Drop detaches the record from an object that outlives the environment.
// The object's references turn dead and its finalizer runs, as if the
// object had been collected.
func (info *objectInfo) Drop() {
	e := info.env
	if err := e.adapter.AttachNativeInfo(info.obj, nil, nil); err != nil {
		e.logger.Debug("detach native info", zap.Error(err))
	}
	dead := e.killReferences(info)
	e.logger.Debug("native info dropped at teardown",
		zap.Uint32("object", uint32(info.obj)),
		zap.Int("dead_references", dead))
	info.runFinalizer()
}

func (info *objectInfo) runFinalizer() {
	if fin := info.finalize; fin != nil {
		info.finalize = nil
		fin(info.env, info.nativeObject, info.finalizeHint)
	}
}

// killReferences marks every reference on info's list dead and empties the
// list. It returns the number of references marked.
func (e *Env) killReferences(info *objectInfo) int {
	dead := 0
	for cur := info.refStart; !cur.IsZero(); {
		node, ok := e.refs.Get(cur)
		if !ok {
			e.fatal("reference list links a freed node",
				zap.Stringer("info", info.handle),
				zap.Stringer("ref", cur))
		}
		next := node.next
		node.value = engine.Dead
		node.state = RefDead
		node.owner, node.prev, node.next = 0, 0, 0
		cur = next
		dead++
	}
	info.refStart, info.refEnd = 0, 0
	return dead
}
