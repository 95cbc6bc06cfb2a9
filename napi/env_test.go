package napi

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/resource"
)

func TestEnv_OperationsAfterTeardown(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()
	ref := mustRef(t, env, obj, 1)

	env.Teardown()
	if !env.Closed() {
		t.Fatal("Closed = false after teardown")
	}

	checks := map[string]error{}
	_, checks["open"] = env.OpenHandleScope()
	_, checks["create_ref"] = env.CreateReference(obj, 0)
	_, checks["ref"] = env.ReferenceRef(ref)
	checks["delete_ref"] = env.DeleteReference(ref)
	checks["add_hook"] = env.AddEnvCleanupHook(func(any) {}, nil)
	checks["wrap"] = env.Wrap(obj, "native", nil, nil)
	checks["track"] = env.Track(obj)

	for name, err := range checks {
		if StatusOf(err) != StatusGenericFailure {
			t.Errorf("%s after teardown: got %v, want generic_failure", name, err)
		}
	}
}

func TestEnv_NilEnvironment(t *testing.T) {
	var env *Env
	if _, err := env.OpenHandleScope(); StatusOf(err) != StatusInvalidArg {
		t.Fatalf("nil env: got %v", err)
	}
	env.Teardown()

	var scope HandleScope
	if st := OpenHandleScope(nil, &scope); st != StatusInvalidArg {
		t.Fatalf("ABI nil env: got %v", st)
	}
}

func TestEnv_OwnerThread(t *testing.T) {
	_, env := newTestEnv(t)
	if !env.OnOwnerThread() {
		t.Fatal("setup goroutine is not on the owner thread")
	}
	if env.OwnerThread() != currentThreadID() {
		t.Fatalf("OwnerThread = %d, current = %d", env.OwnerThread(), currentThreadID())
	}
}

func TestEnv_DoubleDestroyIsFatal(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()
	mustRef(t, env, obj, 0)

	raw, ok := heap.NativeInfo(obj)
	if !ok {
		t.Fatal("reference did not attach native info")
	}
	env.destroyInfo(raw)

	msg := expectFatal(t, func() { env.destroyInfo(raw) })
	if msg != "native info destroyed twice" {
		t.Fatalf("fatal message = %q", msg)
	}
}

func TestEnv_ForeignDestroyIsFatal(t *testing.T) {
	_, env := newTestEnv(t)
	expectFatal(t, func() { env.destroyInfo("not a handle") })
}

func TestEnv_CustomFatalHandlerMustNotReturn(t *testing.T) {
	heap := newCountingAdapter()
	called := false
	env := Setup(heap, WithFatalHandler(func(string) { called = true }))
	defer env.Teardown()

	defer func() {
		if recover() == nil {
			t.Fatal("fatal returned normally")
		}
		if !called {
			t.Fatal("fatal handler not called")
		}
	}()
	env.destroyInfo(resource.Handle(0))
}

func TestEnv_ObserverEvents(t *testing.T) {
	heap := newCountingAdapter()
	var events []resource.Event
	env := Setup(heap, WithObserver(resource.ObserverFunc(func(ev resource.Event) {
		events = append(events, ev)
	})))
	defer env.Teardown()

	obj := heap.NewObject()
	ref, err := env.CreateReference(obj, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.DeleteReference(ref); err != nil {
		t.Fatal(err)
	}

	var created, dropped int
	for _, ev := range events {
		switch ev.Type {
		case resource.EventCreated:
			created++
		case resource.EventDropped:
			dropped++
		}
	}
	// native info and reference are created; only the reference is dropped
	if created != 2 || dropped != 1 {
		t.Fatalf("created=%d dropped=%d, events=%v", created, dropped, events)
	}
}

func TestEnv_TeardownWarnsOnLeakedScopes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	heap := newCountingAdapter()
	env := Setup(heap, WithLogger(zap.New(core)))

	env.OpenHandleScope()
	env.OpenHandleScope()
	env.Teardown()

	warns := logs.FilterMessage("handle scopes still open at teardown").All()
	if len(warns) != 1 {
		t.Fatalf("got %d warnings", len(warns))
	}
	if n := warns[0].ContextMap()["count"]; n != int64(2) {
		t.Fatalf("count = %v", n)
	}
}

func TestEnv_TeardownReleasesReferences(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()
	mustRef(t, env, obj, 2)

	gone := heap.NewObject()
	mustRef(t, env, gone, 0)
	heap.Collect()

	env.Teardown()
	if heap.RootCount(obj) != 0 {
		t.Fatalf("RootCount = %d; teardown must release reference counts", heap.RootCount(obj))
	}
	if env.LiveReferences() != 0 {
		t.Fatalf("LiveReferences = %d", env.LiveReferences())
	}
	if heap.releases[engine.Dead] != 0 {
		t.Fatal("dead sentinel released during teardown")
	}
	if _, ok := heap.NativeInfo(obj); ok {
		t.Fatal("native info still attached after teardown")
	}
}

func TestEnv_TeardownFinalizesLiveObjects(t *testing.T) {
	heap, env := newTestEnv(t)
	obj := heap.NewObject()
	heap.Acquire(obj)

	var finalized []any
	if err := env.Wrap(obj, "native", func(_ *Env, data, hint any) {
		finalized = append(finalized, data, hint)
	}, "hint"); err != nil {
		t.Fatal(err)
	}
	ref := mustRef(t, env, obj, 1)

	var state RefState
	env.AddEnvCleanupHook(func(any) {
		state, _ = env.ReferenceState(ref)
	}, nil)

	env.Teardown()
	if state != RefStrong {
		t.Fatalf("hook saw %v; hooks run before references are released", state)
	}
	if len(finalized) != 2 || finalized[0] != "native" || finalized[1] != "hint" {
		t.Fatalf("finalizer calls = %v", finalized)
	}

	// The object outlives the environment; collecting it later must not
	// call back into the closed env.
	heap.Release(obj)
	if n := heap.Collect(); n != 1 {
		t.Fatalf("collected %d, want 1", n)
	}
	if len(finalized) != 2 {
		t.Fatal("finalizer ran twice")
	}
}
