package napiruntime

import (
	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/napi"
)

// Runtime pairs an in-memory engine heap with the environment built on it.
type Runtime struct {
	Heap *engine.Heap
	Env  *napi.Env
}

// New creates a heap and sets up an environment over it on the calling
// thread.
func New(opts ...napi.Option) *Runtime {
	heap := engine.NewHeap()
	return &Runtime{
		Heap: heap,
		Env:  napi.Setup(heap, opts...),
	}
}

// Close tears the environment down and collects whatever is no longer
// rooted. It returns the number of objects collected.
func (r *Runtime) Close() int {
	r.Env.Teardown()
	return r.Heap.Collect()
}
