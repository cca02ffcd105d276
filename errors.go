package tbs

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a TBS error
type ErrorCategory string

const (
	ErrorCategoryParameters    ErrorCategory = "parameters"
	ErrorCategoryShareIndex    ErrorCategory = "share_index"
	ErrorCategoryKey           ErrorCategory = "key"
	ErrorCategoryEncoding      ErrorCategory = "encoding"
	ErrorCategoryCryptographic ErrorCategory = "cryptographic"
	ErrorCategoryQuorum        ErrorCategory = "quorum"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"      // contribution can be discarded, session continues
	ErrorSeverityMedium   ErrorSeverity = "medium"   // request must be retried
	ErrorSeverityHigh     ErrorSeverity = "high"     // caller misconfiguration
	ErrorSeverityCritical ErrorSeverity = "critical" // randomness or system failure
)

// TBSError is the structured error returned by every fallible operation in
// this package.
type TBSError struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Cause       error                  `json:"-"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Recoverable bool                   `json:"recoverable"`
}

// Error implements the error interface
func (e *TBSError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *TBSError) Unwrap() error {
	return e.Cause
}

// Is matches any TBSError carrying the same code, so sentinels keep working
// after WithContext/WithCause/WithDetails produced a copy.
func (e *TBSError) Is(target error) bool {
	t, ok := target.(*TBSError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *TBSError) clone() *TBSError {
	c := *e
	c.Context = make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		c.Context[k] = v
	}
	return &c
}

// WithContext adds context information to a copy of the error
func (e *TBSError) WithContext(key string, value interface{}) *TBSError {
	c := e.clone()
	c.Context[key] = value
	return c
}

// WithCause returns a copy of the error wrapping cause
func (e *TBSError) WithCause(cause error) *TBSError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails returns a copy of the error with a formatted detail string
func (e *TBSError) WithDetails(format string, args ...interface{}) *TBSError {
	c := e.clone()
	c.Details = fmt.Sprintf(format, args...)
	return c
}

// IsRecoverable returns whether the error is recoverable
func (e *TBSError) IsRecoverable() bool {
	return e.Recoverable
}

// NewTBSError creates a new TBS error
func NewTBSError(category ErrorCategory, severity ErrorSeverity, code, message string) *TBSError {
	return &TBSError{
		Category:    category,
		Severity:    severity,
		Code:        code,
		Message:     message,
		Context:     make(map[string]interface{}),
		Recoverable: severity != ErrorSeverityCritical,
	}
}

var (
	ErrInvalidParameters = NewTBSError(
		ErrorCategoryParameters, ErrorSeverityHigh, "INVALID_PARAMETERS",
		"invalid threshold or share count")

	ErrDuplicateShareIndex = NewTBSError(
		ErrorCategoryShareIndex, ErrorSeverityLow, "DUPLICATE_SHARE_INDEX",
		"share index appears more than once")

	ErrReservedShareIndex = NewTBSError(
		ErrorCategoryShareIndex, ErrorSeverityLow, "RESERVED_SHARE_INDEX",
		"share index 0 is reserved for the secret")

	ErrUnknownShareIndex = NewTBSError(
		ErrorCategoryShareIndex, ErrorSeverityLow, "UNKNOWN_SHARE_INDEX",
		"share index is not part of the federation")

	ErrNonInvertibleKey = NewTBSError(
		ErrorCategoryKey, ErrorSeverityMedium, "NON_INVERTIBLE_KEY",
		"blinding key is zero")

	ErrMalformedEncoding = NewTBSError(
		ErrorCategoryEncoding, ErrorSeverityLow, "MALFORMED_ENCODING",
		"malformed encoding")

	ErrInvalidShare = NewTBSError(
		ErrorCategoryCryptographic, ErrorSeverityLow, "INVALID_SHARE",
		"blinded signature share does not verify against the guardian's public key share")

	ErrRandomnessGeneration = NewTBSError(
		ErrorCategoryCryptographic, ErrorSeverityCritical, "RANDOMNESS_GENERATION_FAILED",
		"failed to generate secure randomness")

	ErrInsufficientShares = NewTBSError(
		ErrorCategoryQuorum, ErrorSeverityMedium, "INSUFFICIENT_SHARES",
		"fewer shares than the threshold")
)

// IsErrorCategory checks if an error belongs to a specific category
func IsErrorCategory(err error, category ErrorCategory) bool {
	var tbsErr *TBSError
	if errors.As(err, &tbsErr) {
		return tbsErr.Category == category
	}
	return false
}

// IsRecoverableError checks if an error is recoverable. Errors that did not
// originate in this package are treated as recoverable.
func IsRecoverableError(err error) bool {
	var tbsErr *TBSError
	if errors.As(err, &tbsErr) {
		return tbsErr.IsRecoverable()
	}
	return true
}

// GetErrorContext extracts context from a TBS error
func GetErrorContext(err error) map[string]interface{} {
	var tbsErr *TBSError
	if errors.As(err, &tbsErr) {
		return tbsErr.Context
	}
	return nil
}
