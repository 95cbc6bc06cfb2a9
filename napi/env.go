package napi

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/resource"
)

// Env is one engine environment: its scope stack, reference and native info
// storage, and cleanup hooks. An Env is owned by the thread that called Setup.
type Env struct {
	adapter engine.Adapter
	logger  *zap.Logger
	onFatal func(msg string)

	refs  *resource.Arena[*refNode]
	infos *resource.Arena[*objectInfo]

	scopes      []scopeFrame
	nextScopeID uint64

	hooks    *cleanupHook
	ranHooks []hookID

	lastErr     ErrorInfo
	ownerThread int
	closed      bool
}

// Option configures an Env at Setup.
type Option func(*Env)

// WithLogger sets the logger used by the environment.
func WithLogger(l *zap.Logger) Option {
	return func(e *Env) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFatalHandler replaces the handler invoked on invariant violations.
// The default logs at fatal level, which terminates the process. If a custom
// handler returns, the environment panics instead of continuing.
func WithFatalHandler(fn func(msg string)) Option {
	return func(e *Env) {
		if fn != nil {
			e.onFatal = fn
		}
	}
}

// WithObserver subscribes o to reference and native info slot events.
func WithObserver(o resource.Observer) Option {
	return func(e *Env) {
		e.refs.Subscribe(o)
		e.infos.Subscribe(o)
	}
}

// Setup creates the environment, pins the calling goroutine to its OS thread
// and records that thread as the owner.
func Setup(adapter engine.Adapter, opts ...Option) *Env {
	runtime.LockOSThread()

	e := &Env{
		adapter: adapter,
		logger:  Logger(),
		refs:    resource.NewArena[*refNode](),
		infos:   resource.NewArena[*objectInfo](),
		scopes:  []scopeFrame{{id: rootScopeID}},
	}
	e.onFatal = func(msg string) { e.logger.Fatal(msg) }
	for _, opt := range opts {
		opt(e)
	}
	e.ownerThread = currentThreadID()

	e.logger.Debug("napi environment setup", zap.Int("thread", e.ownerThread))
	return e
}

// Teardown runs every cleanup hook once, releases all remaining transient
// roots and every count still held by a reference, then finalizes the native
// info of each object that is still alive. Later calls fail with a generic
// failure status. Calling Teardown twice is a no-op.
func (e *Env) Teardown() {
	if e == nil || e.closed {
		return
	}

	e.runCleanupHooks()

	if leaked := len(e.scopes) - 1; leaked > 0 {
		e.logger.Warn("handle scopes still open at teardown", zap.Int("count", leaked))
	}
	for i := len(e.scopes) - 1; i >= 0; i-- {
		e.releaseFrame(&e.scopes[i])
	}
	e.scopes = nil

	refs, infos := e.refs.Len(), e.infos.Len()
	e.refs.Each(func(_ resource.Handle, node *refNode) bool {
		if node.state != RefDead {
			for ; node.refcount > 0; node.refcount-- {
				e.adapter.Release(node.value)
			}
			node.state = RefWeak
		}
		return true
	})
	e.infos.Close()
	e.refs.Close()
	e.closed = true

	e.logger.Debug("napi environment teardown",
		zap.Int("references", refs),
		zap.Int("native_infos", infos))

	runtime.UnlockOSThread()
}

// Closed reports whether Teardown has run.
func (e *Env) Closed() bool {
	return e.closed
}

// Adapter returns the engine adapter the environment was set up with.
func (e *Env) Adapter() engine.Adapter {
	return e.adapter
}

// OwnerThread returns the OS thread id recorded at Setup.
func (e *Env) OwnerThread() int {
	return e.ownerThread
}

// OnOwnerThread reports whether the caller runs on the thread recorded at Setup.
func (e *Env) OnOwnerThread() bool {
	return currentThreadID() == e.ownerThread
}

// LastError returns the outcome of the most recent ABI call.
func (e *Env) LastError() ErrorInfo {
	return e.lastErr
}

func (e *Env) check(phase errors.Phase, op string) error {
	if e == nil {
		return errors.InvalidArg(phase, op, "nil environment")
	}
	if e.closed {
		return errors.New(errors.PhaseEnv, errors.KindClosed).
			Op(op).
			Detail("environment is torn down").
			Build()
	}
	return nil
}

func (e *Env) setLastError(err error) Status {
	status := StatusOf(err)
	e.lastErr = ErrorInfo{Err: err, Status: status}
	if err != nil {
		e.lastErr.Message = err.Error()
		e.logger.Debug("napi call failed", zap.Stringer("status", status), zap.Error(err))
	}
	return status
}

// fatal reports a broken internal invariant. It never returns.
func (e *Env) fatal(msg string, fields ...zap.Field) {
	e.logger.Error("napi invariant violated: "+msg, fields...)
	e.onFatal(msg)
	panic("napi: " + msg)
}
