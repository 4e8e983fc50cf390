package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"

	// Resolver diagnostics. None of these abort an analysis.
	CodeUnresolvedReference  ErrorCode = "UNRESOLVED_REFERENCE"
	CodeResolutionAmbiguity  ErrorCode = "RESOLUTION_AMBIGUITY"
	CodeUnsupportedConstruct ErrorCode = "UNSUPPORTED_CONSTRUCT"
	CodeModuleUnavailable    ErrorCode = "MODULE_UNAVAILABLE"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath       = "path"
	CtxOperation  = "operation"
	CtxSymbol     = "symbol"
	CtxLine       = "line"
	CtxScope      = "scope"
	CtxModule     = "module"
	CtxCandidates = "candidates"
	CtxNodeKind   = "kind"
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

// Diagnostic builds a DomainError tied to a source line, for callers that keep
// adding context before reporting it.
func Diagnostic(code ErrorCode, line int, msg string) *DomainError {
	return (&DomainError{Code: code, Message: msg}).WithContext(CtxLine, line)
}

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

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
