// Package errors provides the unified error type and factory functions for the
// KeyIP-LongDoc service.  The pipeline, the infrastructure adapters and the
// interface layers all use AppError as the single carrier for structured error
// information, so HTTP responses, CLI output and logs agree on one code.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError
// ─────────────────────────────────────────────────────────────────────────────

// AppError carries a typed code through the pipeline, the adapters and the
// HTTP and CLI layers.  Message is safe to show callers; Detail adds context
// such as a job ID or segment index.  Stack is captured at construction and
// never printed by Error.
//
//	return errors.New(errors.ErrCodeDocumentEmpty, "document text is required")
//	return errors.Wrap(err, errors.ErrCodeLLMRequestFailed, "structure analysis call failed")
type AppError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Cause   error
	Stack   string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>"; the detail segment is omitted when
// empty and the cause is appended when present.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code.String(), e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a shallow copy of the receiver with Detail set.
// It is safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// newError is the single construction point; skip counts the exported
// constructor so the stack starts at its caller.
func newError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause, Stack: captureStack(2)}
}

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return newError(code, message, nil)
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return newError(code, fmt.Sprintf(format, args...), nil)
}

// Wrap returns nil for a nil err so it can be used inline.  CodeUnknown keeps
// the code of an AppError already in the chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		if inner := GetCode(err); inner != CodeUnknown {
			code = inner
		}
	}
	return newError(code, message, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain carries a not-found code.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound) || IsCode(err, ErrCodeJobNotFound)
}

// IsValidation reports whether err's chain carries a caller-input error:
// generic validation, bad request, empty document or invalid options.
func IsValidation(err error) bool {
	for _, code := range []ErrorCode{ErrCodeValidation, ErrCodeBadRequest, ErrCodeDocumentEmpty, ErrCodeInvalidOptions} {
		if IsCode(err, code) {
			return true
		}
	}
	return false
}

// GetCode extracts the ErrorCode from the first *AppError found in err's chain.
// If no *AppError is present, CodeUnknown is returned.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Shorthands for the common codes.

func NotFound(message string) *AppError     { return newError(CodeNotFound, message, nil) }
func InvalidParam(message string) *AppError { return newError(CodeInvalidParam, message, nil) }
func Internal(message string) *AppError     { return newError(CodeInternal, message, nil) }
func Conflict(message string) *AppError     { return newError(CodeConflict, message, nil) }
func RateLimit(message string) *AppError    { return newError(CodeRateLimit, message, nil) }

//Personal.AI order the ending
