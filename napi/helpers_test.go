package napi

import (
	"testing"

	"github.com/wippyai/napi-runtime/engine"
)

// countingAdapter records every Acquire and Release call, including calls on
// the dead sentinel, on top of a real heap.
type countingAdapter struct {
	*engine.Heap
	acquires map[engine.Value]int
	releases map[engine.Value]int
}

func newCountingAdapter() *countingAdapter {
	return &countingAdapter{
		Heap:     engine.NewHeap(),
		acquires: make(map[engine.Value]int),
		releases: make(map[engine.Value]int),
	}
}

func (a *countingAdapter) Acquire(v engine.Value) {
	a.acquires[v]++
	a.Heap.Acquire(v)
}

func (a *countingAdapter) Release(v engine.Value) {
	a.releases[v]++
	a.Heap.Release(v)
}

type fatalPanic struct{ msg string }

func newTestEnv(t *testing.T) (*countingAdapter, *Env) {
	t.Helper()
	heap := newCountingAdapter()
	env := Setup(heap, WithFatalHandler(func(msg string) {
		panic(fatalPanic{msg: msg})
	}))
	t.Cleanup(env.Teardown)
	return heap, env
}

// expectFatal runs fn and fails the test unless it hits the fatal handler.
func expectFatal(t *testing.T, fn func()) string {
	t.Helper()
	var msg string
	func() {
		defer func() {
			r := recover()
			fp, ok := r.(fatalPanic)
			if !ok {
				t.Fatalf("expected fatal handler, got %v", r)
			}
			msg = fp.msg
		}()
		fn()
	}()
	return msg
}

func mustRef(t *testing.T, env *Env, obj engine.Value, n uint32) Reference {
	t.Helper()
	ref, err := env.CreateReference(obj, n)
	if err != nil {
		t.Fatalf("CreateReference(%v, %d): %v", obj, n, err)
	}
	return ref
}
