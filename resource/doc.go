// Package resource provides stable-handle slot storage for host-side records.
//
// An Arena maps integer handles to Go values. Handles stay valid for the
// lifetime of the stored value and become stale, never dangling, once the
// slot is freed: every handle carries the generation of its slot, and a slot's
// generation advances each time it is released. A stale handle simply fails
// to resolve, even after its slot has been reused.
//
//	arena := resource.NewArena[*node]()
//
//	// Insert a value, get a handle
//	h := arena.Insert(n)
//
//	// Retrieve value by handle
//	n, ok := arena.Get(h)
//
//	// Remove and get value
//	n, ok = arena.Remove(h)
//
// Handle 0 is reserved and always invalid, so the zero value of a struct
// field holding a Handle reads as "no link".
//
// # Observers
//
// Register observers to track slot lifecycle events:
//
//	arena.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    switch e.Type {
//	    case resource.EventCreated:
//	        log.Printf("slot %v created", e.Handle)
//	    case resource.EventDropped:
//	        log.Printf("slot %v dropped", e.Handle)
//	    }
//	}))
//
// # Threading
//
// An Arena has a single owner and performs no locking. Callers that share
// one across goroutines must synchronize access themselves.
package resource
