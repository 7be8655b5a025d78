package errs

import (
	"errors"
	"fmt"
)

// Error represents a json-encoded API error.
type Error struct {
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a new error message.
func New(text string) error {
	return &Error{Message: text}
}

var (
	// ErrInvalidLoggerInstance is returned when logger instance is not supported.
	ErrInvalidLoggerInstance = New("Invalid logger instance")
	// ErrUnsupportedFormat is returned when the envelope carries an unknown coverage format tag.
	ErrUnsupportedFormat = New("unsupported coverage format")
	// ErrUnsupportedScheme is returned when the transport endpoint URL scheme is not recognized.
	ErrUnsupportedScheme = New("unsupported transport endpoint scheme")
	// ErrReportNotFound is returned when no report exists for the requested identity.
	ErrReportNotFound = New("report not found")
	// ErrConfigNotFound is returned when a repository has no config row.
	ErrConfigNotFound = New("repository config not found")
	// GenericErrRemark returns a generic error message for user facing errors.
	GenericErrRemark = New("Unexpected error")
)

// ParseError marks a malformed raw coverage payload. Messages failing with a
// ParseError are dropped, never retried: malformed payloads cannot self-heal.
type ParseError struct {
	Format string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (%s payload): %s", e.Format, e.Reason)
}

// ParseErrorf builds a ParseError for the given format tag.
func ParseErrorf(format, reason string, args ...interface{}) error {
	return &ParseError{Format: format, Reason: fmt.Sprintf(reason, args...)}
}

// TransportError marks a failed publish. The agent logs it and discards the
// snapshot; the next flush tick retries naturally.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error publishing to %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StoreError marks a transient persistence failure. Messages failing with a
// StoreError are requeued with an incremented retry counter.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsParseError reports whether err wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// BaselineUnavailable is returned when diff prerequisites are missing: the
// base ref is unreachable, or the version-control call timed out. Callers
// degrade to a full-coverage-only response.
type BaselineUnavailable struct {
	Ref    string
	Reason string
}

func (e *BaselineUnavailable) Error() string {
	return fmt.Sprintf("baseline unavailable (ref %q): %s", e.Ref, e.Reason)
}

// IsBaselineUnavailable reports whether err wraps a BaselineUnavailable.
func IsBaselineUnavailable(err error) bool {
	var be *BaselineUnavailable
	return errors.As(err, &be)
}

// InvariantViolation marks malformed range data for one file. The file's
// ranges are rejected; the rest of the report is kept.
type InvariantViolation struct {
	File   string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("range invariant violated in %s: %s", e.File, e.Reason)
}
