// Package napi implements the native-object lifetime layer of a native
// extension ABI on top of an engine.Adapter: handle scopes, persistent
// references, per-object native info with finalizers, and environment
// cleanup hooks.
//
// # Environment
//
// All state hangs off an explicit *Env created by Setup and destroyed by
// Teardown. Setup records the OS thread it ran on; every later call is
// expected on that thread. Nothing in this package locks.
//
//	env := napi.Setup(heap, napi.WithLogger(log))
//	defer env.Teardown()
//
// # Handle scopes
//
// Values obtained during a native call are transient roots of the innermost
// open scope (Track). Closing the scope releases them. Scopes close in
// strict LIFO order; closing anything but the top fails with
// StatusHandleScopeMismatch and leaves the stack untouched. An escapable
// scope may promote exactly one value into its parent frame.
//
//	scope, _ := env.OpenEscapableHandleScope()
//	obj := heap.NewObject()
//	env.Track(obj)
//	out, _ := env.EscapeHandle(scope, obj)
//	env.CloseEscapableHandleScope(scope)   // out is still rooted by the parent
//
// A permanent root frame sits under every user scope; values tracked with no
// scope open, or escaped from the outermost scope, land there and are
// released at Teardown.
//
// # References
//
// A Reference is a refcounted persistent handle, independent of scopes, in
// one of three states:
//
//	RefStrong  refcount > 0, keeps the object rooted
//	RefWeak    refcount == 0, tracked but not rooting
//	RefDead    the object was collected; the value reads as engine.Dead
//
// References to one object form an intrusive doubly linked list stored in
// the object's native info record. Links are arena handles, not pointers, so
// a reference that outlives its object can still be deleted safely.
//
// # Finalizers
//
// When the engine collects an object, every outstanding reference turns
// dead, and then the finalizer registered through Wrap or AddFinalizer runs
// once. A finalizer must not use the engine value of the object being
// finalized, but may call back into the Env for anything else, including
// deleting references.
//
// # Teardown
//
// Teardown runs the cleanup hooks, then releases scopes and every count
// still held by a reference. Objects that outlive the environment are
// finalized as if collected and lose their native info.
//
// # Status codes
//
// Methods on Env return *errors.Error values. The package-level functions
// in abi.go mirror the C binding surface: a Status return plus an out
// parameter, with the last failure retrievable through GetLastErrorInfo.
package napi
