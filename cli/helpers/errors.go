package helpers

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/conduit/engine/core"
)

// CliError is the structured error printed when a command fails.
type CliError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

func (e *CliError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.cause
}

func NewCliError(code, message string) *CliError {
	return &CliError{Code: code, Message: message}
}

// CategorizeError maps err to a CliError. Coded domain errors keep their code.
func CategorizeError(err error) *CliError {
	if err == nil {
		return nil
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	switch {
	case errors.Is(err, context.Canceled):
		return &CliError{Code: "OPERATION_CANCELED", Message: "Operation was canceled by user", cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &CliError{Code: "OPERATION_TIMEOUT", Message: "Operation timed out", cause: err}
	}
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return &CliError{Code: coreErr.Code, Message: err.Error(), Details: coreErr.Details, cause: err}
	}
	return &CliError{Code: core.CodeInternal, Message: err.Error(), cause: err}
}
