// Package loop is a millisecond timer queue driven by explicit ticks.
//
// A Scheduler samples its clock once per Tick and fires every running timer
// whose due time has passed, in due-time order. Repeating timers are re-armed
// relative to the sampled time; one-shot timers are closed before their
// callback runs, so a callback may start the same timer again.
//
// Schedulers are not safe for concurrent use.
package loop
