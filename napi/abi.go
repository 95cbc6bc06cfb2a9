package napi

import (
	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
)

// The functions below mirror the native binding surface: a Status return,
// results through out parameters, and the failure recorded on the Env for
// GetLastErrorInfo. A nil env or a nil out parameter is StatusInvalidArg.

func nilResult(env *Env, phase errors.Phase, op string) Status {
	return env.setLastError(errors.InvalidArg(phase, op, "nil result pointer"))
}

func finish(env *Env, err error) Status {
	return env.setLastError(err)
}

func OpenHandleScope(env *Env, result *HandleScope) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseScope, "open_handle_scope")
	}
	s, err := env.OpenHandleScope()
	if err == nil {
		*result = s
	}
	return finish(env, err)
}

func CloseHandleScope(env *Env, scope HandleScope) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.CloseHandleScope(scope))
}

func OpenEscapableHandleScope(env *Env, result *EscapableHandleScope) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseScope, "open_escapable_handle_scope")
	}
	s, err := env.OpenEscapableHandleScope()
	if err == nil {
		*result = s
	}
	return finish(env, err)
}

func CloseEscapableHandleScope(env *Env, scope EscapableHandleScope) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.CloseEscapableHandleScope(scope))
}

func EscapeHandle(env *Env, scope EscapableHandleScope, escapee engine.Value, result *engine.Value) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseScope, "escape_handle")
	}
	v, err := env.EscapeHandle(scope, escapee)
	if err == nil {
		*result = v
	}
	return finish(env, err)
}

func OpenCallbackScope(env *Env, resourceObject engine.Value, asyncContext any, result *CallbackScope) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseScope, "open_callback_scope")
	}
	s, err := env.OpenCallbackScope(resourceObject, asyncContext)
	if err == nil {
		*result = s
	}
	return finish(env, err)
}

func CloseCallbackScope(env *Env, scope CallbackScope) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.CloseCallbackScope(scope))
}

func CreateReference(env *Env, value engine.Value, initialRefcount uint32, result *Reference) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseReference, "create_reference")
	}
	ref, err := env.CreateReference(value, initialRefcount)
	if err == nil {
		*result = ref
	}
	return finish(env, err)
}

func DeleteReference(env *Env, ref Reference) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.DeleteReference(ref))
}

// ReferenceRef accepts a nil result, like the C surface.
func ReferenceRef(env *Env, ref Reference, result *uint32) Status {
	if env == nil {
		return StatusInvalidArg
	}
	n, err := env.ReferenceRef(ref)
	if err == nil && result != nil {
		*result = n
	}
	return finish(env, err)
}

// ReferenceUnref accepts a nil result, like the C surface.
func ReferenceUnref(env *Env, ref Reference, result *uint32) Status {
	if env == nil {
		return StatusInvalidArg
	}
	n, err := env.ReferenceUnref(ref)
	if err == nil && result != nil {
		*result = n
	}
	return finish(env, err)
}

func GetReferenceValue(env *Env, ref Reference, result *engine.Value) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseReference, "get_reference_value")
	}
	v, err := env.GetReferenceValue(ref)
	if err == nil {
		*result = v
	}
	return finish(env, err)
}

func AddEnvCleanupHook(env *Env, fn CleanupFunc, arg any) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.AddEnvCleanupHook(fn, arg))
}

func RemoveEnvCleanupHook(env *Env, fn CleanupFunc, arg any) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.RemoveEnvCleanupHook(fn, arg))
}

func AddHook(env *Env, hook Hook, arg any) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.AddHook(hook, arg))
}

func RemoveHook(env *Env, hook Hook, arg any) Status {
	if env == nil {
		return StatusInvalidArg
	}
	return finish(env, env.RemoveHook(hook, arg))
}

// Wrap optionally returns a weak reference to obj through result.
func Wrap(env *Env, obj engine.Value, native any, finalize Finalizer, hint any, result *Reference) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if err := env.Wrap(obj, native, finalize, hint); err != nil {
		return finish(env, err)
	}
	if result != nil {
		ref, err := env.CreateReference(obj, 0)
		if err != nil {
			env.RemoveWrap(obj)
			return finish(env, err)
		}
		*result = ref
	}
	return finish(env, nil)
}

func Unwrap(env *Env, obj engine.Value, result *any) Status {
	if env == nil {
		return StatusInvalidArg
	}
	if result == nil {
		return nilResult(env, errors.PhaseInfo, "unwrap")
	}
	native, err := env.Unwrap(obj)
	if err == nil {
		*result = native
	}
	return finish(env, err)
}

// RemoveWrap accepts a nil result.
func RemoveWrap(env *Env, obj engine.Value, result *any) Status {
	if env == nil {
		return StatusInvalidArg
	}
	native, err := env.RemoveWrap(obj)
	if err == nil && result != nil {
		*result = native
	}
	return finish(env, err)
}

// GetLastErrorInfo reports the outcome of the previous call. It does not
// itself overwrite the recorded error.
func GetLastErrorInfo(env *Env, result *ErrorInfo) Status {
	if env == nil || result == nil {
		return StatusInvalidArg
	}
	*result = env.LastError()
	return StatusOK
}
