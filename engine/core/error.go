package core

import (
	"errors"
	"fmt"
)

// Reason codes carried by Error.
const (
	CodeUnsupportedOperation = "unsupported_operation"
	CodeInvalidInput         = "invalid_input"
	CodeConflict             = "conflict"
	CodeNotFound             = "not_found"
	CodeValidation           = "validation_failed"
	CodeInternal             = "internal_error"
)

// Error is a user facing failure with a machine checkable reason code.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func NewError(err error, code string, details map[string]any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), Details: details, Err: err}
}

// Errorf builds an Error whose message is formatted from the arguments.
func Errorf(code string, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Code: code, Message: err.Error(), Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, so sentinels can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code && (other.Message == "" || other.Message == e.Message)
}

func (e *Error) AsMap() map[string]any {
	if e == nil {
		return nil
	}
	m := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		m["details"] = e.Details
	}
	return m
}

// CodeOf returns the reason code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}
