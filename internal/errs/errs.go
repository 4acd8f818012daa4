// Package errs defines the error taxonomy shared by every pipeline stage.
// Kinds are sentinels; callers test them with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrManifest marks a malformed or incomplete manifest.
	ErrManifest = errors.New("manifest error")
	// ErrValidation marks referential or structural batch problems.
	ErrValidation = errors.New("validation error")
	// ErrRegistry marks an incompatible re-declaration of an existing entity.
	ErrRegistry = errors.New("registry error")
	// ErrIssuer marks a credential or token issuing failure.
	ErrIssuer = errors.New("issuer error")
	// ErrNoEligibleTask is returned when an annotator has no open work left.
	ErrNoEligibleTask = errors.New("no eligible task")
	// ErrUnsupportedTaskType is returned for task types outside the closed set.
	ErrUnsupportedTaskType = errors.New("unsupported task type")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSubmission marks a rejected annotation payload.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrUnauthorized marks failed credential checks.
	ErrUnauthorized = errors.New("unauthorized")
)

// Error wraps a kind with the operation that failed and an optional cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to an underlying cause.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the first known kind in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrManifest, ErrValidation, ErrRegistry, ErrIssuer,
		ErrNoEligibleTask, ErrUnsupportedTaskType, ErrNotFound,
		ErrInvalidSubmission, ErrUnauthorized,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
