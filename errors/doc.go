// Package errors provides structured error types for the napi-runtime library.
//
// Errors are categorized by Phase (which subsystem reported them) and Kind
// (error category). Kinds line up with the status codes returned by the
// native ABI surface, so callers can translate an error into a status
// without string matching.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseScope, errors.KindScopeMismatch).
//		Op("close_handle_scope").
//		Value(scopeID).
//		Detail("scope %d is not the stack top", scopeID).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidArg(errors.PhaseReference, "reference_unref", "refcount is already 0")
//	err := errors.Closed(errors.PhaseEnv, "environment")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
