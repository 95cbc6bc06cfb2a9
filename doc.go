// Package napiruntime implements the native-object lifetime layer of a
// Node-API style binding surface on top of a garbage-collected engine.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	napiruntime/         Root package wiring a heap to an environment
//	├── napi/            Environment, handle scopes, references, cleanup hooks, wrapping
//	├── engine/          Engine adapter interface and the in-memory mark-sweep Heap
//	├── resource/        Generation-checked slot arena backing references and native info
//	├── loop/            Millisecond timer queue driven by explicit ticks
//	├── scenario/        TOML scenario replay, traces and msgpack snapshots
//	├── errors/          Structured error types mapped to napi status codes
//	└── cmd/lifetrace/   CLI to run, snapshot and inspect scenarios
//
// # Quick Start
//
//	rt := napiruntime.New()
//	defer rt.Close()
//
//	scope, _ := rt.Env.OpenHandleScope()
//	obj := rt.Heap.NewObject()
//	rt.Env.Track(obj)
//
//	ref, _ := rt.Env.CreateReference(obj, 1)
//	rt.Env.CloseHandleScope(scope)
//
//	rt.Heap.Collect()               // obj survives, ref holds it
//	rt.Env.ReferenceUnref(ref)
//	rt.Heap.Collect()               // obj is collected
//	v, _ := rt.Env.GetReferenceValue(ref)
//	fmt.Println(v.IsDead())         // true
//	rt.Env.DeleteReference(ref)
//
// # Lifetimes
//
// Values created during a native call are rooted by the innermost handle
// scope and released when it closes. An escapable scope may promote exactly
// one value into its parent. References root their value while their
// refcount is positive and turn weak at zero; once the engine collects the
// object every reference to it reads back as the dead value until deleted.
//
// An Env is bound to the OS thread that created it. All calls must come from
// that thread; nothing in the library locks.
package napiruntime
