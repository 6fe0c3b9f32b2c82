package provider

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNoConnection        ErrorCode = "NO_CONNECTION"
	CodeNoRefreshToken      ErrorCode = "NO_REFRESH_TOKEN"
	CodeRefreshFailed       ErrorCode = "REFRESH_FAILED"
	CodeGenerationFailed    ErrorCode = "GENERATION_FAILED"
	CodeUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"
)

// Error is a provider-layer failure tagged with a code the caller can
// act on, e.g. surfacing NO_REFRESH_TOKEN as "reconnect your account".
type Error struct {
	Code     ErrorCode
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code ErrorCode, providerName string, err error) *Error {
	return &Error{Code: code, Provider: providerName, Err: err}
}

// CodeOf extracts the error code, or "" when err is not a provider error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ErrNotReady marks a recording lookup whose result simply does not exist
// yet at the provider. Not a failure: a later trigger retries.
var ErrNotReady = errors.New("recording not ready")
