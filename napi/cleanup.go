package napi

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/errors"
)

// CleanupFunc is a hook run once at environment teardown.
type CleanupFunc func(arg any)

// Hook is a cleanup hook with its own identity. Two Hooks are the same hook
// when they compare equal with ==, so distinct pointer receivers register
// distinct hooks.
type Hook interface {
	RunCleanup(arg any)
}

// hookID is the identity of a registered hook. CleanupFunc hooks are keyed
// by code pointer, Hook values by the interface value itself.
type hookID struct {
	fn   uintptr
	hook Hook
	arg  any
}

type cleanupHook struct {
	id   hookID
	fn   CleanupFunc
	next *cleanupHook
}

func (h *cleanupHook) run() {
	if h.fn != nil {
		h.fn(h.id.arg)
		return
	}
	h.id.hook.RunCleanup(h.id.arg)
}

func checkHookArg(op string, arg any) error {
	if arg != nil && !reflect.ValueOf(arg).Comparable() {
		return errors.New(errors.PhaseCleanup, errors.KindInvalidArg).
			Op(op).
			Detail("hook argument of type %T is not comparable", arg).
			Build()
	}
	return nil
}

func funcHookID(op string, fn CleanupFunc, arg any) (hookID, error) {
	if fn == nil {
		return hookID{}, errors.InvalidArg(errors.PhaseCleanup, op, "nil hook function")
	}
	if err := checkHookArg(op, arg); err != nil {
		return hookID{}, err
	}
	return hookID{fn: reflect.ValueOf(fn).Pointer(), arg: arg}, nil
}

func valueHookID(op string, hook Hook, arg any) (hookID, error) {
	if hook == nil {
		return hookID{}, errors.InvalidArg(errors.PhaseCleanup, op, "nil hook")
	}
	if !reflect.ValueOf(hook).Comparable() {
		return hookID{}, errors.New(errors.PhaseCleanup, errors.KindInvalidArg).
			Op(op).
			Detail("hook of type %T is not comparable", hook).
			Build()
	}
	if err := checkHookArg(op, arg); err != nil {
		return hookID{}, err
	}
	return hookID{hook: hook, arg: arg}, nil
}

// AddEnvCleanupHook appends fn(arg) to the teardown list. Registering the
// same (fn, arg) pair twice is an error.
//
// fn is identified by its code pointer. Method values of one method on
// different receivers, and closures created from one function literal,
// share that pointer and therefore collide; register those with AddHook.
func (e *Env) AddEnvCleanupHook(fn CleanupFunc, arg any) error {
	const op = "add_env_cleanup_hook"
	if err := e.check(errors.PhaseCleanup, op); err != nil {
		return err
	}
	id, err := funcHookID(op, fn, arg)
	if err != nil {
		return err
	}
	return e.addHook(op, &cleanupHook{id: id, fn: fn})
}

// RemoveEnvCleanupHook unregisters the hook matching (fn, arg) exactly.
func (e *Env) RemoveEnvCleanupHook(fn CleanupFunc, arg any) error {
	const op = "remove_env_cleanup_hook"
	if err := e.check(errors.PhaseCleanup, op); err != nil {
		return err
	}
	id, err := funcHookID(op, fn, arg)
	if err != nil {
		return err
	}
	return e.removeHook(op, id)
}

// AddHook appends hook.RunCleanup(arg) to the teardown list. It shares the
// list, ordering and duplicate rules of AddEnvCleanupHook.
func (e *Env) AddHook(hook Hook, arg any) error {
	const op = "add_hook"
	if err := e.check(errors.PhaseCleanup, op); err != nil {
		return err
	}
	id, err := valueHookID(op, hook, arg)
	if err != nil {
		return err
	}
	return e.addHook(op, &cleanupHook{id: id})
}

// RemoveHook unregisters the (hook, arg) pair.
func (e *Env) RemoveHook(hook Hook, arg any) error {
	const op = "remove_hook"
	if err := e.check(errors.PhaseCleanup, op); err != nil {
		return err
	}
	id, err := valueHookID(op, hook, arg)
	if err != nil {
		return err
	}
	return e.removeHook(op, id)
}

func (e *Env) addHook(op string, hook *cleanupHook) error {
	for _, id := range e.ranHooks {
		if id == hook.id {
			return errors.New(errors.PhaseCleanup, errors.KindDuplicate).
				Op(op).
				Detail("cleanup hook already ran in this teardown").
				Build()
		}
	}

	var last *cleanupHook
	for h := e.hooks; h != nil; h = h.next {
		if h.id == hook.id {
			return errors.Duplicate(errors.PhaseCleanup, op, "cleanup hook")
		}
		last = h
	}
	if last == nil {
		e.hooks = hook
	} else {
		last.next = hook
	}
	return nil
}

func (e *Env) removeHook(op string, id hookID) error {
	var prev *cleanupHook
	for h := e.hooks; h != nil; h = h.next {
		if h.id == id {
			if prev == nil {
				e.hooks = h.next
			} else {
				prev.next = h.next
			}
			h.next = nil
			return nil
		}
		prev = h
	}
	return errors.NotFound(errors.PhaseCleanup, op, "cleanup hook")
}

// CleanupHooks returns the number of registered hooks.
func (e *Env) CleanupHooks() int {
	n := 0
	for h := e.hooks; h != nil; h = h.next {
		n++
	}
	return n
}

// runCleanupHooks makes one forward pass over the hook list in registration
// order. Each node is detached before its hook runs, so a hook may add or
// remove other hooks: hooks removed before the cursor reaches them never
// run, and hooks appended during the pass land ahead of the cursor and run
// in this same pass. A pair that already ran cannot be added again until
// the pass ends, so every pair runs at most once per teardown.
func (e *Env) runCleanupHooks() {
	e.ranHooks = make([]hookID, 0, e.CleanupHooks())
	defer func() { e.ranHooks = nil }()

	for e.hooks != nil {
		h := e.hooks
		e.hooks = h.next
		h.next = nil
		e.ranHooks = append(e.ranHooks, h.id)
		h.run()
	}
	if n := len(e.ranHooks); n > 0 {
		e.logger.Debug("cleanup hooks ran", zap.Int("count", n))
	}
}
