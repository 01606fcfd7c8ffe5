package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"syscall"
)

// Phase names the socket operation that failed
type Phase string

const (
	PhaseOpen    Phase = "open"    // socket creation
	PhaseConnect Phase = "connect" // outbound connection
	PhaseBind    Phase = "bind"    // local address assignment
	PhaseListen  Phase = "listen"  // passive open
	PhaseAccept  Phase = "accept"  // inbound connection
	PhaseSend    Phase = "send"    // outbound data
	PhaseReceive Phase = "receive" // inbound data
	PhasePoll    Phase = "poll"    // single socket readiness
	PhaseSelect  Phase = "select"  // multi socket readiness
	PhaseOption  Phase = "option"  // getsockopt/setsockopt
	PhaseAddress Phase = "address" // getsockname/getpeername
	PhaseAssign  Phase = "assign"  // role-checked assignment
	PhaseClose   Phase = "close"   // descriptor release
	PhaseResolve Phase = "resolve" // endpoint construction
)

// Kind categorizes the error
type Kind string

const (
	KindConnectionRefused    Kind = "connection_refused"
	KindTimedOut             Kind = "timed_out"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindInvalidEndpoint      Kind = "invalid_endpoint"
	KindResourceUnavailable  Kind = "resource_unavailable"
	KindTransport            Kind = "transport"
)

// Sentinel values for errors.Is. They carry no phase, so they match any
// error of the same kind.
var (
	ErrConnectionRefused    = &Error{Kind: KindConnectionRefused}
	ErrTimedOut             = &Error{Kind: KindTimedOut}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrInvalidEndpoint      = &Error{Kind: KindInvalidEndpoint}
	ErrResourceUnavailable  = &Error{Kind: KindResourceUnavailable}
	ErrTransport            = &Error{Kind: KindTransport}
)

// Error is the structured error type returned by every socket operation
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Endpoint string
	Detail   string
	Errno    syscall.Errno
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Endpoint != "" {
		b.WriteString(" ")
		b.WriteString(e.Endpoint)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Endpoint sets the formatted endpoint involved in the failure
func (b *Builder) Endpoint(ep fmt.Stringer) *Builder {
	if ep != nil {
		b.err.Endpoint = ep.String()
	}
	return b
}

// Cause sets the underlying error and captures its errno if it has one
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	if errno, ok := Errno(err); ok {
		b.err.Errno = errno
	}
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the taxonomy

// ConnectionRefused creates an error for a peer that actively refused
func ConnectionRefused(phase Phase, endpoint string, cause error) *Error {
	return New(phase, KindConnectionRefused).Cause(cause).endpoint(endpoint).Build()
}

// TimedOut creates an error for a bound that elapsed without completion
func TimedOut(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTimedOut,
		Detail: detail,
	}
}

// InvalidConfiguration creates an error for role mismatches and malformed option values
func InvalidConfiguration(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidConfiguration,
		Detail: detail,
	}
}

// InvalidEndpoint creates an error for a malformed or unresolvable target
func InvalidEndpoint(phase Phase, endpoint string, cause error) *Error {
	return New(phase, KindInvalidEndpoint).Cause(cause).endpoint(endpoint).Build()
}

// Unavailable creates an error for an operation attempted on a closed or null socket
func Unavailable(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindResourceUnavailable,
		Detail: "socket unavailable",
	}
}

// Transport wraps an OS-level failure, keeping its errno
func Transport(phase Phase, cause error) *Error {
	return New(phase, KindTransport).Cause(cause).Build()
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	e := New(phase, kind).Cause(cause).Build()
	e.Detail = detail
	return e
}

func (b *Builder) endpoint(s string) *Builder {
	b.err.Endpoint = s
	return b
}

// KindOf returns the kind of the first structured error in err's chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Errno extracts the OS error code from err's chain
func Errno(err error) (syscall.Errno, bool) {
	if err == nil {
		return 0, false
	}
	var e *Error
	if stderrors.As(err, &e) && e.Errno != 0 {
		return e.Errno, true
	}
	var errno syscall.Errno
	if stderrors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}
