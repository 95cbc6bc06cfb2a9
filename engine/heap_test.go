package engine

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	rterrors "github.com/wippyai/napi-runtime/errors"
)

func TestHeap_CollectUnrooted(t *testing.T) {
	h := NewHeap()

	obj := h.NewObject()
	if obj.IsDead() {
		t.Fatal("NewObject returned the dead sentinel")
	}
	if !h.Alive(obj) {
		t.Fatal("new object should be alive")
	}

	if n := h.Collect(); n != 1 {
		t.Fatalf("Collect swept %d, want 1", n)
	}
	if h.Alive(obj) {
		t.Fatal("unrooted object survived collection")
	}
	if h.Collected() != 1 {
		t.Fatalf("Collected = %d", h.Collected())
	}
}

func TestHeap_AcquireRelease(t *testing.T) {
	h := NewHeap()
	obj := h.NewObject()

	h.Acquire(obj)
	h.Acquire(obj)
	if h.RootCount(obj) != 2 {
		t.Fatalf("RootCount = %d, want 2", h.RootCount(obj))
	}

	h.Collect()
	if !h.Alive(obj) {
		t.Fatal("rooted object collected")
	}

	h.Release(obj)
	h.Release(obj)
	h.Release(obj) // extra release is ignored
	if h.RootCount(obj) != 0 {
		t.Fatalf("RootCount = %d, want 0", h.RootCount(obj))
	}

	h.Collect()
	if h.Alive(obj) {
		t.Fatal("object should be collected after last release")
	}
}

func TestHeap_DeadSentinelNoop(t *testing.T) {
	h := NewHeap()
	h.Acquire(Dead)
	h.Release(Dead)
	if h.RootCount(Dead) != 0 {
		t.Fatal("dead sentinel must not be rooted")
	}
	if _, ok := h.NativeInfo(Dead); ok {
		t.Fatal("dead sentinel has no native info")
	}
}

func TestHeap_PropertiesKeepReachable(t *testing.T) {
	h := NewHeap()
	parent := h.NewObject()
	child := h.NewObject()
	grandchild := h.NewObject()

	h.Acquire(parent)
	if err := h.SetProperty(parent, "child", child); err != nil {
		t.Fatal(err)
	}
	if err := h.SetProperty(child, "next", grandchild); err != nil {
		t.Fatal(err)
	}

	if n := h.Collect(); n != 0 {
		t.Fatalf("Collect swept %d reachable objects", n)
	}

	if err := h.SetProperty(parent, "child", Dead); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Property(parent, "child"); ok {
		t.Fatal("property should be removed")
	}
	if n := h.Collect(); n != 2 {
		t.Fatalf("Collect swept %d, want 2", n)
	}
	if !h.Alive(parent) {
		t.Fatal("rooted parent collected")
	}
}

func TestHeap_CycleCollected(t *testing.T) {
	h := NewHeap()
	a := h.NewObject()
	b := h.NewObject()
	h.SetProperty(a, "b", b)
	h.SetProperty(b, "a", a)

	if n := h.Collect(); n != 2 {
		t.Fatalf("Collect swept %d, want 2", n)
	}
}

func TestHeap_DestroyCallback(t *testing.T) {
	h := NewHeap()
	obj := h.NewObject()

	var got []any
	if err := h.AttachNativeInfo(obj, "info", func(info any) {
		got = append(got, info)
	}); err != nil {
		t.Fatal(err)
	}

	info, ok := h.NativeInfo(obj)
	if !ok || info != "info" {
		t.Fatalf("NativeInfo = %v, %v", info, ok)
	}

	h.Collect()
	h.Collect()
	if len(got) != 1 || got[0] != "info" {
		t.Fatalf("destroy callback calls = %v, want exactly one", got)
	}
}

func TestHeap_DestroyCallbackReentrancy(t *testing.T) {
	h := NewHeap()
	other := h.NewObject()
	h.Acquire(other)

	obj := h.NewObject()
	var nested int
	h.AttachNativeInfo(obj, 1, func(any) {
		// The swept object is already gone; releasing another value and
		// requesting a nested collection are both allowed.
		if h.Alive(obj) {
			t.Error("object still live inside its destroy callback")
		}
		h.Release(other)
		nested = h.Collect()
	})

	h.Collect()
	if nested != 0 {
		t.Fatalf("nested Collect swept %d, want 0", nested)
	}
	if h.Collect() != 1 || h.Alive(other) {
		t.Fatal("released object should be swept by the next collection")
	}
}

func TestHeap_AttachToMissingObject(t *testing.T) {
	h := NewHeap()
	err := h.AttachNativeInfo(Value(42), nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var e *rterrors.Error
	if !errors.As(err, &e) || e.Kind != rterrors.KindNotFound {
		t.Fatalf("unexpected error %v", err)
	}
	if err := h.SetProperty(Value(42), "k", Dead); err == nil {
		t.Fatal("SetProperty on missing object should fail")
	}
}

func TestHeap_Objects(t *testing.T) {
	h := NewHeap()
	a := h.NewObject()
	b := h.NewObject()
	objs := h.Objects()
	if len(objs) != 2 || objs[0] != a || objs[1] != b {
		t.Fatalf("Objects = %v", objs)
	}
	if h.Len() != 2 {
		t.Fatalf("Len = %d", h.Len())
	}
}

func TestValue_String(t *testing.T) {
	if Dead.String() != "Value(dead)" {
		t.Errorf("Dead.String() = %q", Dead.String())
	}
	if Value(5).String() != "Value(5)" {
		t.Errorf("Value(5).String() = %q", Value(5).String())
	}
}

func TestHeap_DebugLoggingFollowsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	h := NewHeap()
	obj := h.NewObject()
	h.AttachNativeInfo(obj, "info", func(any) {})
	h.Collect()

	if logs.FilterMessage("object allocated").Len() != 1 {
		t.Fatalf("allocation not logged: %v", logs.All())
	}
	if logs.FilterMessage("destroying native info").Len() != 1 {
		t.Fatalf("destroy not logged: %v", logs.All())
	}

	core, logs = observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	h.NewObject()
	if logs.Len() != 0 {
		t.Fatalf("debug entries logged at info level: %v", logs.All())
	}
}
