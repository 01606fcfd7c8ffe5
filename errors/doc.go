// Package errors provides structured error types for the socket layer.
//
// Errors are categorized by Phase (the operation that failed) and Kind
// (what went wrong). The kinds form a closed taxonomy so callers can pick a
// retry strategy without parsing messages:
//
//	connection_refused     peer actively refused
//	timed_out              a bound elapsed without completion
//	invalid_configuration  role-incompatible assignment, bad option value
//	invalid_endpoint       malformed or unresolvable target
//	resource_unavailable   operation on a closed or null socket
//	transport              any other OS failure, errno preserved
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConnect, errors.KindTimedOut).
//		Endpoint(ep).
//		Detail("no writability after %s", timeout).
//		Build()
//
// Or the convenience constructors:
//
//	err := errors.Unavailable(errors.PhaseSend)
//	err := errors.Transport(errors.PhaseReceive, syscall.ECONNRESET)
//
// Kind sentinels match through errors.Is regardless of phase:
//
//	if errors.Is(err, neterrors.ErrTimedOut) { ... }
//
// The OS error code stays reachable through errors.As / errors.Is on the
// cause chain, or via Errno.
package errors
