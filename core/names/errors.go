package names

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the normalized failure taxonomy of the engine.
type Kind string

const (
	// KindInvalidAccount rejects a blank or malformed account synchronously.
	KindInvalidAccount Kind = "invalid_account"

	// KindInvalidInput rejects a malformed edit (unknown key, bad action).
	KindInvalidInput Kind = "invalid_input"

	// KindNetworkFailure is a transient failure; re-invoking the operation may succeed.
	KindNetworkFailure Kind = "network_failure"

	// KindTimeout is a bounded wait that expired. Retried like a network failure.
	KindTimeout Kind = "timeout"

	// KindRemoteRejected means the ledger refused a validly submitted write.
	KindRemoteRejected Kind = "remote_rejected"

	// KindStaleGeneration marks results of a superseded ownership load. Internal only.
	KindStaleGeneration Kind = "stale_generation"
)

// Error wraps failures with a normalized kind.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap supports error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Op == "" && t.Err == nil && t.Kind == e.Kind
	}
	return false
}

// NewError creates a new normalized error.
func NewError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidAccount  = &Error{Kind: KindInvalidAccount, Message: "account must not be empty"}
	ErrInvalidInput    = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNetworkFailure  = &Error{Kind: KindNetworkFailure}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrRemoteRejected  = &Error{Kind: KindRemoteRejected}
	ErrStaleGeneration = &Error{Kind: KindStaleGeneration}
)

// KindOf extracts the kind of an error. Unclassified errors are network failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNetworkFailure
}

// IsRetryable reports whether re-invoking the same operation may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetworkFailure, KindTimeout:
		return true
	default:
		return false
	}
}

// Classify wraps err with op context, preserving an existing kind.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(KindOf(err), op, "", err)
}
