// Package failure classifies why an operation did not produce a result.
package failure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure category.
type Kind int

const (
	// Network means the request did not complete at the transport level.
	Network Kind = iota + 1

	// Rejected means the server answered with a non-success status.
	Rejected

	// Validation means a caller-side precondition failed before any request.
	Validation

	// Persistence means the durable client-side record could not be written.
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Rejected:
		return "rejected"
	case Validation:
		return "validation"
	case Persistence:
		return "persistence"
	}
	return "unknown"
}

// Error is a structured operation failure.
type Error struct {
	Kind    Kind
	Op      string // operation family, e.g. "login", "fetch"
	Status  int    // HTTP status for Rejected, otherwise 0
	Message string // user-visible message
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " failure"
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuth reports whether the server refused the request for lack of a
// valid session.
func (e *Error) IsAuth() bool {
	return e.Kind == Rejected && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// NewNetwork wraps a transport error.
func NewNetwork(op string, err error) *Error {
	msg := "network error"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	} else if err != nil {
		msg = fmt.Sprintf("network error: %v", err)
	}
	return &Error{Kind: Network, Op: op, Message: msg, Err: err}
}

// NewRejected builds a failure for a non-success HTTP status.
// An empty message falls back to a generic one naming the status.
func NewRejected(op string, status int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("request failed with status code %d", status)
	}
	return &Error{Kind: Rejected, Op: op, Status: status, Message: message}
}

// NewValidation builds a caller-side precondition failure.
func NewValidation(op, format string, args ...any) *Error {
	return &Error{Kind: Validation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NewPersistence wraps a durable storage error.
func NewPersistence(op string, err error) *Error {
	return &Error{Kind: Persistence, Op: op, Message: fmt.Sprintf("failed to save session: %v", err), Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// From returns err as an *Error tagged with op. Unclassified errors become
// Network failures with fallback as their message when fallback is set.
func From(op string, err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	if fe, ok := As(err); ok {
		if fe.Op == "" {
			cp := *fe
			cp.Op = op
			return &cp
		}
		return fe
	}
	fe := NewNetwork(op, err)
	if fallback != "" && !errors.Is(err, context.DeadlineExceeded) {
		fe.Message = fallback
	}
	return fe
}
