package gateway

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a gateway error for retry and recovery decisions.
type ErrorClass string

const (
	// ClassNotFound indicates the named unit or operation does not exist.
	ClassNotFound ErrorClass = "not_found"

	// ClassThrottled indicates the remote system is rate limiting. Retried
	// with a longer, jittered backoff.
	ClassThrottled ErrorClass = "throttled"

	// ClassTransport indicates a network or IO failure. Retried with the
	// standard backoff until the retry budget is exhausted.
	ClassTransport ErrorClass = "transport"

	// ClassValidation indicates malformed input. Never retried.
	ClassValidation ErrorClass = "validation"

	// ClassConflict indicates a concurrent modification of the unit. Surfaced
	// distinctly so the caller can retry the whole operation.
	ClassConflict ErrorClass = "conflict"
)

// Error is a classified error returned by gateway calls.
type Error struct {
	// Class is the error classification for retry logic.
	Class ErrorClass

	// Message is the human-readable error message.
	Message string

	// Op is the gateway call that failed, if known.
	Op string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("[%s] %s (op=%s)", e.Class, msg, e.Op)
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by class, so predicates work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// Retryable reports whether a retry may succeed.
func (e *Error) Retryable() bool {
	return e.Class == ClassThrottled || e.Class == ClassTransport
}

// NewNotFound creates a not-found error.
func NewNotFound(message string, err error) *Error {
	return &Error{Class: ClassNotFound, Message: message, Err: err}
}

// NewThrottled creates a throttled error.
func NewThrottled(message string, err error) *Error {
	return &Error{Class: ClassThrottled, Message: message, Err: err}
}

// NewTransport creates a transport error.
func NewTransport(message string, err error) *Error {
	return &Error{Class: ClassTransport, Message: message, Err: err}
}

// NewValidation creates a validation error.
func NewValidation(message string, err error) *Error {
	return &Error{Class: ClassValidation, Message: message, Err: err}
}

// NewConflict creates a conflict error.
func NewConflict(message string, err error) *Error {
	return &Error{Class: ClassConflict, Message: message, Err: err}
}

// WithOp annotates the error with the gateway call that produced it.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// ClassOf returns the class of err, or ClassTransport when err is not a
// gateway error. Treating unclassified errors as transport keeps unknown
// client failures retryable rather than fatal.
func ClassOf(err error) ErrorClass {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class
	}
	return ClassTransport
}

// IsNotFound reports whether err is classified not-found.
func IsNotFound(err error) bool { return ClassOf(err) == ClassNotFound }

// IsThrottled reports whether err is classified throttled.
func IsThrottled(err error) bool { return ClassOf(err) == ClassThrottled }

// IsValidation reports whether err is classified validation.
func IsValidation(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Class == ClassValidation
}

// IsConflict reports whether err is classified conflict.
func IsConflict(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Class == ClassConflict
}

// IsRetryable reports whether err may succeed on retry. ErrNoChanges is a
// terminal signal, never retried.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNoChanges) {
		return false
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Retryable()
	}
	return true
}

// ErrNoChanges signals that a submission contained no changes to apply. It is
// a normal outcome, not a failure: the operation short-circuits to success.
var ErrNoChanges = errors.New("no changes to apply")
