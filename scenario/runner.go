package scenario

import (
	"fmt"
	"time"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/errors"
	"github.com/wippyai/napi-runtime/loop"
	"github.com/wippyai/napi-runtime/napi"
)

// Runner replays scenario files. A Runner may be reused; every Run starts
// from a fresh heap and environment.
type Runner struct {
	logger *zap.Logger

	heap      *engine.Heap
	env       *napi.Env
	objects   map[string]engine.Value
	refs      map[string]napi.Reference
	scopes    map[string]napi.HandleScope
	escapable map[string]napi.EscapableHandleScope
	timers    map[string]*loop.Timer
	hooks     map[string]*namedHook
	events    []string

	// virtual clock driving sched, in nanoseconds
	clock int64
	sched *loop.Scheduler
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger handed to the environment.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// namedHook is the cleanup hook bound to one scenario hook name. Each name
// maps to one pointer, so (name, arg) is the registration identity.
type namedHook struct {
	r    *Runner
	name string
}

func (h *namedHook) RunCleanup(arg any) {
	if a, _ := arg.(string); a != "" {
		h.r.events = append(h.r.events, fmt.Sprintf("hook %s(%s)", h.name, a))
		return
	}
	h.r.events = append(h.r.events, "hook "+h.name)
}

func (r *Runner) hook(name string) *namedHook {
	h, ok := r.hooks[name]
	if !ok {
		h = &namedHook{r: r, name: name}
		r.hooks[name] = h
	}
	return h
}

type invariantPanic struct{ msg string }

// Run executes every step of f. The returned error reports a broken
// environment invariant; expectation mismatches are reported by Trace.Err.
func (r *Runner) Run(f *File) (trace *Trace, err error) {
	r.heap = engine.NewHeap()
	r.objects = make(map[string]engine.Value)
	r.refs = make(map[string]napi.Reference)
	r.scopes = make(map[string]napi.HandleScope)
	r.escapable = make(map[string]napi.EscapableHandleScope)
	r.timers = make(map[string]*loop.Timer)
	r.hooks = make(map[string]*namedHook)
	r.clock = 0
	r.sched = loop.New(
		loop.WithClock(func() int64 { return r.clock }),
		loop.WithLogger(r.logger))
	r.env = napi.Setup(r.heap,
		napi.WithLogger(r.logger),
		napi.WithFatalHandler(func(msg string) { panic(invariantPanic{msg: msg}) }))

	trace = &Trace{Name: f.Name}
	defer func() {
		if rec := recover(); rec != nil {
			ip, ok := rec.(invariantPanic)
			if !ok {
				panic(rec)
			}
			err = errors.New(errors.PhaseScenario, errors.KindGenericFailure).
				Op(fmt.Sprintf("step %d", len(trace.Steps)+1)).
				Detail("environment invariant violated: %s", ip.msg).
				Build()
		}
		r.env.Teardown()
	}()

	for i, step := range f.Steps {
		r.events = nil
		res := r.exec(step)
		res.Index = i + 1
		res.Op = step.Op
		res.Expect = step.Expect
		res.Events = r.events
		if step.Expect != "" {
			want, _ := napi.ParseStatus(step.Expect)
			if want != res.Status {
				res.Failed = true
			}
		}
		res.State = r.capture()
		trace.Steps = append(trace.Steps, res)

		r.logger.Debug("scenario step",
			zap.Int("index", res.Index),
			zap.String("op", string(res.Op)),
			zap.Stringer("status", res.Status),
			zap.Bool("failed", res.Failed))
	}
	return trace, nil
}

func (r *Runner) exec(s Step) StepResult {
	env := r.env
	switch s.Op {
	case OpOpen:
		var scope napi.HandleScope
		st := napi.OpenHandleScope(env, &scope)
		if st == napi.StatusOK {
			r.scopes[s.Scope] = scope
			return r.result(st, fmt.Sprintf("scope %d", scope.ID()))
		}
		return r.result(st, "")

	case OpOpenEscapable:
		var scope napi.EscapableHandleScope
		st := napi.OpenEscapableHandleScope(env, &scope)
		if st == napi.StatusOK {
			r.escapable[s.Scope] = scope
			return r.result(st, fmt.Sprintf("scope %d", scope.ID()))
		}
		return r.result(st, "")

	case OpClose:
		return r.result(napi.CloseHandleScope(env, r.scopes[s.Scope]), "")

	case OpCloseEscapable:
		return r.result(napi.CloseEscapableHandleScope(env, r.escapable[s.Scope]), "")

	case OpEscape:
		var out engine.Value
		st := napi.EscapeHandle(env, r.escapable[s.Scope], r.objects[s.Obj], &out)
		return r.result(st, "")

	case OpNewObject:
		obj := r.heap.NewObject()
		r.objects[s.Obj] = obj
		if err := env.Track(obj); err != nil {
			return r.fail(err)
		}
		return r.result(napi.StatusOK, fmt.Sprintf("object %d", obj))

	case OpSetProperty:
		if err := r.heap.SetProperty(r.objects[s.Obj], s.Key, r.objects[s.Value]); err != nil {
			return r.fail(err)
		}
		return r.result(napi.StatusOK, "")

	case OpCreateRef:
		n, err := safecast.Conv[uint32](s.Count)
		if err != nil {
			return r.fail(errors.Wrap(errors.PhaseScenario, errors.KindInvalidArg, err, "count"))
		}
		var ref napi.Reference
		st := napi.CreateReference(env, r.objects[s.Obj], n, &ref)
		if st == napi.StatusOK {
			r.refs[s.Ref] = ref
		}
		return r.result(st, "")

	case OpRef:
		var n uint32
		st := napi.ReferenceRef(env, r.refs[s.Ref], &n)
		return r.result(st, r.countDetail(st, n))

	case OpUnref:
		var n uint32
		st := napi.ReferenceUnref(env, r.refs[s.Ref], &n)
		return r.result(st, r.countDetail(st, n))

	case OpDeleteRef:
		return r.result(napi.DeleteReference(env, r.refs[s.Ref]), "")

	case OpGetRef:
		var v engine.Value
		st := napi.GetReferenceValue(env, r.refs[s.Ref], &v)
		if st != napi.StatusOK {
			return r.result(st, "")
		}
		res := r.result(st, "value "+r.nameOf(v))
		if s.Value != "" && s.Value != r.nameOf(v) {
			res.Failed = true
			res.Detail = fmt.Sprintf("value %s, want %s", r.nameOf(v), s.Value)
		}
		return res

	case OpWrap:
		return r.result(napi.Wrap(env, r.objects[s.Obj], s.Arg, r.finalize, s.Obj, nil), "")

	case OpUnwrap:
		var native any
		st := napi.Unwrap(env, r.objects[s.Obj], &native)
		if st != napi.StatusOK {
			return r.result(st, "")
		}
		return r.result(st, fmt.Sprintf("native %v", native))

	case OpRemoveWrap:
		return r.result(napi.RemoveWrap(env, r.objects[s.Obj], nil), "")

	case OpGC:
		n := r.heap.Collect()
		return r.result(napi.StatusOK, fmt.Sprintf("collected %d", n))

	case OpAddHook:
		return r.result(napi.AddHook(env, r.hook(s.Hook), s.Arg), "")

	case OpRemoveHook:
		return r.result(napi.RemoveHook(env, r.hook(s.Hook), s.Arg), "")

	case OpStartTimer:
		timeout, err := safecast.Conv[uint64](s.Count)
		if err != nil {
			return r.fail(errors.Wrap(errors.PhaseScenario, errors.KindInvalidArg, err, "timeout"))
		}
		t := r.timers[s.Timer]
		if t == nil {
			t = &loop.Timer{}
			r.timers[s.Timer] = t
		}
		t.Data = s
		if err := r.sched.Start(t, timeout, 0, r.fireTimer, nil); err != nil {
			return r.fail(err)
		}
		return r.result(napi.StatusOK, fmt.Sprintf("due %d", t.Due()))

	case OpStopTimer:
		t := r.timers[s.Timer]
		if t == nil {
			return r.fail(errors.NotFound(errors.PhaseTimer, "stop_timer", "timer "+s.Timer))
		}
		if err := r.sched.Close(t); err != nil {
			return r.fail(err)
		}
		return r.result(napi.StatusOK, "")

	case OpAdvance:
		r.clock += s.Count * int64(time.Millisecond)
		n := r.sched.Tick()
		return r.result(napi.StatusOK, fmt.Sprintf("fired %d", n))

	case OpTeardown:
		env.Teardown()
		return r.result(napi.StatusOK, "")
	}
	return r.fail(errors.InvalidData(errors.PhaseScenario, fmt.Sprintf("unknown op %q", s.Op)))
}

func (r *Runner) result(st napi.Status, detail string) StepResult {
	if st != napi.StatusOK && detail == "" {
		var info napi.ErrorInfo
		napi.GetLastErrorInfo(r.env, &info)
		detail = info.Message
	}
	return StepResult{Status: st, Detail: detail}
}

func (r *Runner) fail(err error) StepResult {
	return StepResult{Status: napi.StatusOf(err), Detail: err.Error()}
}

func (r *Runner) countDetail(st napi.Status, n uint32) string {
	if st != napi.StatusOK {
		return ""
	}
	return fmt.Sprintf("refcount %d", n)
}

// fireTimer performs the timer's action on its reference.
func (r *Runner) fireTimer(t *loop.Timer) {
	s := t.Data.(Step)
	var st napi.Status
	switch s.Arg {
	case "unref":
		st = napi.ReferenceUnref(r.env, r.refs[s.Ref], nil)
	case "delete_ref":
		st = napi.DeleteReference(r.env, r.refs[s.Ref])
	case "gc":
		r.heap.Collect()
	}
	if s.Ref == "" {
		r.events = append(r.events, fmt.Sprintf("timer %s %s: %s", s.Timer, s.Arg, st))
		return
	}
	r.events = append(r.events, fmt.Sprintf("timer %s %s %s: %s", s.Timer, s.Arg, s.Ref, st))
}

func (r *Runner) finalize(_ *napi.Env, data, hint any) {
	r.events = append(r.events, fmt.Sprintf("finalize %v (%v)", hint, data))
}

// nameOf returns the scenario name bound to v, "dead" for the dead value.
func (r *Runner) nameOf(v engine.Value) string {
	if v.IsDead() {
		return "dead"
	}
	for name, obj := range r.objects {
		if obj == v {
			return name
		}
	}
	return v.String()
}
