// Package scenario replays lifetime scenarios written in TOML against a fresh
// engine heap and napi environment.
//
// A scenario file is a list of [[step]] tables:
//
//	name = "escape"
//
//	[[step]]
//	op = "open_escapable"
//	scope = "inner"
//
//	[[step]]
//	op = "new_object"
//	obj = "a"
//
//	[[step]]
//	op = "escape"
//	scope = "inner"
//	obj = "a"
//
// Timers started with start_timer run an action ("unref", "delete_ref" or
// "gc") when a later advance step moves the virtual clock past their due
// time.
//
// Objects, references, scopes, hooks and timers are named in the file. Using a name
// that was never bound passes the zero handle to the operation, which is
// how invalid-argument cases are written. A step may pin the status it
// expects with expect = "<status>"; mismatches are collected in the Trace.
package scenario
