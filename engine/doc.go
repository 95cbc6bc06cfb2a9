// Package engine defines the script-engine surface the lifetime layer
// depends on, and ships an in-memory engine implementing it.
//
// The Adapter interface is deliberately small: root counting with Acquire
// and Release, plus a single native-info slot per object whose destroy
// callback the engine runs when the object is collected. Value marshalling,
// property access and error construction belong to the embedding engine and
// are not part of the contract.
//
// # Heap
//
// Heap is a reference Adapter with a tracing collector. It is what the
// napi tests and the lifetrace tool run against:
//
//	heap := engine.NewHeap()
//	obj := heap.NewObject()   // unrooted, collectible
//	heap.Acquire(obj)         // rooted
//	heap.Release(obj)
//	heap.Collect()            // obj swept, destroy callback fired
//
// Values equal to Dead are never live; Acquire and Release ignore them and
// any other value that is not a live object.
package engine
