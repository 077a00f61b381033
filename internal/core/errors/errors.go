package errors

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	CodeMissingComponent ErrorCode = "MISSING_COMPONENT"
	CodeNoInput          ErrorCode = "NO_INPUT"
	CodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	CodeExportFailed     ErrorCode = "EXPORT_FAILED"
	CodeUnbalancedScope  ErrorCode = "UNBALANCED_SCOPE"
	CodeTokenize         ErrorCode = "TOKENIZE_ERROR"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxPaths     = "paths"
	CtxComponent = "component"
	CtxExporter  = "exporter"
	CtxCycles    = "cycles"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a context value to err, wrapping non-domain errors as
// internal failures.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// AggregateError collects independent failures so none is hidden behind the
// first one.
type AggregateError struct {
	Errs []error
}

func (a *AggregateError) Error() string {
	parts := make([]string, 0, len(a.Errs))
	for _, err := range a.Errs {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("%d error(s): %s", len(a.Errs), strings.Join(parts, "; "))
}

func (a *AggregateError) Unwrap() []error {
	return a.Errs
}

// Join returns nil for no errors and an *AggregateError otherwise.
func Join(errs ...error) error {
	var kept []error
	for _, err := range errs {
		if err != nil {
			kept = append(kept, err)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &AggregateError{Errs: kept}
}
