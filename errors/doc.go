// Package errors provides structured error types for the passthrough runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes context: the capability, the composed class, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseQuery, errors.KindNotSupported).
//		Capability(id.String()).
//		Class("logging-protocol").
//		Detail("target slot %d is empty", slot).
//		Build()
//
// Or use convenience constructors for the taxonomy:
//
//	err := errors.NotFound(id.String())
//	err := errors.AlreadyBound(slot)
//	err := errors.MustBeAggregated("logging-protocol")
//
// Sentinels without a phase match errors of the same kind from any phase:
//
//	if errors.Is(err, perrors.ErrNotFound) { ... }
//
// Reference count underflow is fatal; the refcount package panics with the
// *Error produced by Underflow after logging it.
package errors
