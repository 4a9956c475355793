package vizier

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// ErrorClass says how the call wrapper categorized a remote failure.
type ErrorClass string

const (
	// ClassTransient marks service or network conditions that may
	// clear on their own. The wrapper retries them within the policy's
	// budget.
	ClassTransient ErrorClass = "transient"

	// ClassTerminal marks failures retrying cannot fix. They are
	// surfaced immediately.
	ClassTerminal ErrorClass = "terminal"

	// ClassUnknown marks failures the wrapper could not classify. They
	// are retried at most once.
	ClassUnknown ErrorClass = "unknown"

	// ClassCancelled marks calls abandoned because the caller's
	// context was done.
	ClassCancelled ErrorClass = "cancelled"
)

// ParseError reports a malformed resource name. It is produced locally
// before any remote call.
type ParseError struct {
	// Name is the full input string.
	Name string
	// Segment is the offending segment, when one can be singled out.
	Segment string
	// Reason describes what was wrong.
	Reason string
}

func (e *ParseError) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("vizier: parse name %q: %s (segment %q)", e.Name, e.Reason, e.Segment)
	}
	return fmt.Sprintf("vizier: parse name %q: %s", e.Name, e.Reason)
}

// Sentinel causes carried by CodecError.
var (
	// ErrReservedNamespace is the cause when caller code tries to
	// encode a metadata entry into a non-empty namespace. Non-empty
	// namespaces belong to the service and are read-only for clients.
	ErrReservedNamespace = errors.New("namespace is reserved for the service")

	// ErrMetadataUnion is the cause when a metadata entry does not
	// carry exactly one of the string and proto variants.
	ErrMetadataUnion = errors.New("exactly one of the string and proto variants must be set")
)

// CodecError reports a metadata entry that could not be encoded or
// decoded. It is produced locally; no remote call is involved.
type CodecError struct {
	Key       string
	Namespace string
	Err       error
}

func (e *CodecError) Error() string {
	if e.Namespace != "" {
		return fmt.Sprintf("vizier: metadata %q in namespace %q: %v", e.Key, e.Namespace, e.Err)
	}
	return fmt.Sprintf("vizier: metadata %q: %v", e.Key, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// StateError reports a trial operation rejected locally because the
// trial's lifecycle state forbids it. No remote call was made, so no
// server-side effect can have occurred.
type StateError struct {
	Op    string
	Trial string
	State vizierpb.TrialState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("vizier: %s: trial %s is %s", e.Op, e.Trial, e.State)
}

// RemoteError is a remote call failure after any retries the wrapper
// was willing to perform. The underlying transport error is preserved
// and reachable through Unwrap. A transient or unknown RemoteError
// means the last attempt failed in flight; whether it reached the
// service is not known.
type RemoteError struct {
	// Op is the remote operation, e.g. "GetStudy".
	Op string
	// Class is the wrapper's classification of the failure.
	Class ErrorClass
	// Code is the gRPC status code, codes.Unknown when none was
	// carried.
	Code codes.Code
	// Err is the underlying cause.
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("vizier: %s: %s (%s): %v", e.Op, e.Class, e.Code, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RetriesExhaustedError is returned when transient failures persisted
// past the retry budget. Err preserves the last underlying cause as a
// *RemoteError.
type RetriesExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("vizier: %s: retries exhausted after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// IdempotencyError is returned when a retryable failure hit an
// operation the wrapper must not re-issue, because the first attempt
// may already have been applied by the service. The wrapped cause says
// what went wrong; deciding whether to re-issue is left to the caller.
type IdempotencyError struct {
	Op  string
	Err error
}

func (e *IdempotencyError) Error() string {
	return fmt.Sprintf("vizier: %s: not retried, the request may already have been applied: %v", e.Op, e.Err)
}

func (e *IdempotencyError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a terminal not-found from the
// service.
func IsNotFound(err error) bool {
	var e *RemoteError
	return errors.As(err, &e) && e.Code == codes.NotFound
}

// IsTransient reports whether err carries a transient classification,
// including the cause inside a RetriesExhaustedError or
// IdempotencyError.
func IsTransient(err error) bool {
	var e *RemoteError
	return errors.As(err, &e) && e.Class == ClassTransient
}

// IsCancelled reports whether err is a call abandoned because the
// caller's context was done.
func IsCancelled(err error) bool {
	var e *RemoteError
	return errors.As(err, &e) && e.Class == ClassCancelled
}

// IsRetriesExhausted reports whether err is a retry budget exhaustion.
func IsRetriesExhausted(err error) bool {
	var e *RetriesExhaustedError
	return errors.As(err, &e)
}

// IsInvalidState reports whether err is a local lifecycle rejection.
func IsInvalidState(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}

// IsIdempotencyUnsafe reports whether err marks a mutation that was
// not retried because its side effect may already have been applied.
func IsIdempotencyUnsafe(err error) bool {
	var e *IdempotencyError
	return errors.As(err, &e)
}
