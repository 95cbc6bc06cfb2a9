package napi

import (
	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
)

const rootScopeID uint64 = 0

// HandleScope identifies an open plain handle scope.
type HandleScope struct{ id uint64 }

// ID returns the scope id; ids increase monotonically per Env.
func (s HandleScope) ID() uint64 { return s.id }

// EscapableHandleScope identifies an open scope that may escape one value.
type EscapableHandleScope struct{ id uint64 }

// ID returns the scope id.
func (s EscapableHandleScope) ID() uint64 { return s.id }

// CallbackScope is a handle scope opened around a callback into script.
type CallbackScope struct{ id uint64 }

// ID returns the scope id.
func (s CallbackScope) ID() uint64 { return s.id }

type scopeFrame struct {
	roots     []engine.Value
	id        uint64
	escapable bool
	escaped   bool
}

func (e *Env) openScope(op string, escapable bool) (uint64, error) {
	if err := e.check(errors.PhaseScope, op); err != nil {
		return 0, err
	}
	e.nextScopeID++
	id := e.nextScopeID
	e.scopes = append(e.scopes, scopeFrame{id: id, escapable: escapable})
	e.logger.Debug("handle scope opened",
		zap.Uint64("scope", id),
		zap.Bool("escapable", escapable),
		zap.Int("depth", len(e.scopes)-1))
	return id, nil
}

func (e *Env) closeScope(op string, id uint64) error {
	if err := e.check(errors.PhaseScope, op); err != nil {
		return err
	}
	if id == rootScopeID {
		return errors.InvalidArg(errors.PhaseScope, op, "zero scope")
	}
	top := &e.scopes[len(e.scopes)-1]
	if top.id != id {
		return errors.ScopeMismatch(op, id, top.id)
	}

	e.releaseFrame(top)
	e.scopes = e.scopes[:len(e.scopes)-1]
	e.logger.Debug("handle scope closed", zap.Uint64("scope", id))
	return nil
}

// releaseFrame releases the transient roots of f, newest first.
func (e *Env) releaseFrame(f *scopeFrame) {
	for i := len(f.roots) - 1; i >= 0; i-- {
		e.adapter.Release(f.roots[i])
	}
	f.roots = nil
}

// OpenHandleScope pushes a plain scope.
func (e *Env) OpenHandleScope() (HandleScope, error) {
	id, err := e.openScope("open_handle_scope", false)
	return HandleScope{id: id}, err
}

// CloseHandleScope pops s, which must be the current top, and releases its
// transient roots.
func (e *Env) CloseHandleScope(s HandleScope) error {
	return e.closeScope("close_handle_scope", s.id)
}

// OpenEscapableHandleScope pushes a scope that may escape one value.
func (e *Env) OpenEscapableHandleScope() (EscapableHandleScope, error) {
	id, err := e.openScope("open_escapable_handle_scope", true)
	return EscapableHandleScope{id: id}, err
}

// CloseEscapableHandleScope pops s under the same rules as CloseHandleScope.
func (e *Env) CloseEscapableHandleScope(s EscapableHandleScope) error {
	return e.closeScope("close_escapable_handle_scope", s.id)
}

// OpenCallbackScope opens a plain handle scope around a callback. The
// resource object and async context are accepted for signature
// compatibility and not used.
func (e *Env) OpenCallbackScope(_ engine.Value, _ any) (CallbackScope, error) {
	id, err := e.openScope("open_callback_scope", false)
	return CallbackScope{id: id}, err
}

// CloseCallbackScope closes a scope opened by OpenCallbackScope.
func (e *Env) CloseCallbackScope(s CallbackScope) error {
	return e.closeScope("close_callback_scope", s.id)
}

// EscapeHandle roots v in the frame directly below s and marks s escaped.
// Only one value per escapable scope may escape.
func (e *Env) EscapeHandle(s EscapableHandleScope, v engine.Value) (engine.Value, error) {
	const op = "escape_handle"
	if err := e.check(errors.PhaseScope, op); err != nil {
		return engine.Dead, err
	}
	if s.id == rootScopeID {
		return engine.Dead, errors.InvalidArg(errors.PhaseScope, op, "zero scope")
	}

	idx := e.frameIndex(s.id)
	if idx < 0 {
		return engine.Dead, errors.New(errors.PhaseScope, errors.KindInvalidArg).
			Op(op).
			Value(s.id).
			Detail("scope %d is not open", s.id).
			Build()
	}
	frame := &e.scopes[idx]
	if !frame.escapable {
		return engine.Dead, errors.InvalidArg(errors.PhaseScope, op, "scope is not escapable")
	}
	if frame.escaped {
		return engine.Dead, errors.EscapeCalledTwice(s.id)
	}

	parent := &e.scopes[idx-1]
	e.adapter.Acquire(v)
	parent.roots = append(parent.roots, v)
	frame.escaped = true

	e.logger.Debug("handle escaped",
		zap.Uint64("scope", s.id),
		zap.Uint64("parent", parent.id),
		zap.Uint32("value", uint32(v)))
	return v, nil
}

// Track roots v in the innermost open scope until that scope closes. With
// no scope open, v is rooted in the environment's root frame.
func (e *Env) Track(v engine.Value) error {
	if err := e.check(errors.PhaseScope, "track"); err != nil {
		return err
	}
	if v.IsDead() {
		return nil
	}
	top := &e.scopes[len(e.scopes)-1]
	e.adapter.Acquire(v)
	top.roots = append(top.roots, v)
	return nil
}

// OpenScopes returns the number of open user scopes.
func (e *Env) OpenScopes() int {
	if len(e.scopes) == 0 {
		return 0
	}
	return len(e.scopes) - 1
}

// ScopeIDs returns the ids of the open user scopes, outermost first.
func (e *Env) ScopeIDs() []uint64 {
	if len(e.scopes) <= 1 {
		return nil
	}
	ids := make([]uint64, 0, len(e.scopes)-1)
	for _, f := range e.scopes[1:] {
		ids = append(ids, f.id)
	}
	return ids
}

func (e *Env) frameIndex(id uint64) int {
	for i := len(e.scopes) - 1; i > 0; i-- {
		if e.scopes[i].id == id {
			return i
		}
	}
	return -1
}
