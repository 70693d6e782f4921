// Package errors carries the analyzer's error taxonomy. Unsupported syntax
// and initializer failures degrade locally; I/O failures abort the run; a
// reference-lookup miss is an internal-invariant violation.
package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeIO        ErrorCode = "IO_ERROR"
	CodeInvariant ErrorCode = "INVARIANT_VIOLATION"
	CodeSandbox   ErrorCode = "SANDBOX_ERROR"
	CodeInternal  ErrorCode = "INTERNAL_ERROR"
	CodeNotFound  ErrorCode = "NOT_FOUND"
)

const (
	CtxPath    = "path"
	CtxPackage = "package"
	CtxEntity  = "entity"
	CtxDep     = "dependency"
)

type AnalysisError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *AnalysisError) WithContext(key string, value any) *AnalysisError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) *AnalysisError {
	return &AnalysisError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) *AnalysisError {
	return &AnalysisError{Code: code, Message: msg, Err: err}
}

func IsCode(err error, code ErrorCode) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
