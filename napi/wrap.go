package napi

import (
	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
)

// Wrap associates a native object with obj. finalize, if set, runs with
// (native, hint) when obj is collected. An object can be wrapped once, and
// not at all once AddFinalizer has claimed it.
func (e *Env) Wrap(obj engine.Value, native any, finalize Finalizer, hint any) error {
	const op = "wrap"
	if err := e.check(errors.PhaseInfo, op); err != nil {
		return err
	}
	if obj.IsDead() {
		return errors.InvalidArg(errors.PhaseInfo, op, "cannot wrap the dead value")
	}

	info, err := e.getOrCreateInfo(obj)
	if err != nil {
		return err
	}
	if info.wrapped {
		return errors.New(errors.PhaseInfo, errors.KindInvalidArg).
			Op(op).
			Value(obj).
			Detail("object %d is already wrapped", obj).
			Build()
	}
	if info.finalize != nil {
		// The finalizer slot owns nativeObject.
		return errors.New(errors.PhaseInfo, errors.KindInvalidArg).
			Op(op).
			Value(obj).
			Detail("object %d already has a finalizer", obj).
			Build()
	}

	info.wrapped = true
	info.nativeObject = native
	if finalize != nil {
		info.finalize = finalize
		info.finalizeHint = hint
	}
	return nil
}

// Unwrap returns the native object wrapped by obj.
func (e *Env) Unwrap(obj engine.Value) (any, error) {
	info, err := e.wrapInfo("unwrap", obj)
	if err != nil {
		return nil, err
	}
	return info.nativeObject, nil
}

// RemoveWrap detaches the native object from obj without running the
// finalizer, and returns it.
func (e *Env) RemoveWrap(obj engine.Value) (any, error) {
	info, err := e.wrapInfo("remove_wrap", obj)
	if err != nil {
		return nil, err
	}
	native := info.nativeObject
	info.wrapped = false
	info.nativeObject = nil
	info.finalize = nil
	info.finalizeHint = nil
	return native, nil
}

// AddFinalizer registers finalize to run with (native, hint) when obj is
// collected, without wrapping it. Each object has one finalizer slot.
func (e *Env) AddFinalizer(obj engine.Value, native any, finalize Finalizer, hint any) error {
	const op = "add_finalizer"
	if err := e.check(errors.PhaseInfo, op); err != nil {
		return err
	}
	if obj.IsDead() || finalize == nil {
		return errors.InvalidArg(errors.PhaseInfo, op, "need a live object and a finalizer")
	}

	info, err := e.getOrCreateInfo(obj)
	if err != nil {
		return err
	}
	if info.finalize != nil || info.wrapped {
		return errors.InvalidArg(errors.PhaseInfo, op, "object already has a finalizer or a wrap")
	}
	info.finalize = finalize
	info.nativeObject = native
	info.finalizeHint = hint
	return nil
}

func (e *Env) wrapInfo(op string, obj engine.Value) (*objectInfo, error) {
	if err := e.check(errors.PhaseInfo, op); err != nil {
		return nil, err
	}
	info, ok, err := e.tryGetInfo(obj)
	if err != nil {
		return nil, err
	}
	if !ok || !info.wrapped {
		return nil, errors.New(errors.PhaseInfo, errors.KindInvalidArg).
			Op(op).
			Value(obj).
			Detail("object %d is not wrapped", obj).
			Build()
	}
	return info, nil
}
