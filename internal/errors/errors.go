// Package errors provides enhanced error handling for the ROMIS rigid-fragment
// geometry optimizer. Every error carries an optional failure kind, the
// operation and component it originated from, and a captured stack trace.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies an error into the failure categories of an optimization run.
type Kind int

const (
	// KindUnknown is the zero kind for errors that fit no category.
	KindUnknown Kind = iota
	// KindConfiguration marks misuse detected before any expensive work:
	// unknown component names, missing calculator, malformed settings.
	KindConfiguration
	// KindCalculator marks a failure of the external force/energy evaluator.
	// Fatal to the run; never retried.
	KindCalculator
	// KindPersistence marks a failure writing an output artifact.
	KindPersistence
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindCalculator:
		return "calculator"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error represents an error with kind, context and stack trace.
type Error struct {
	// The underlying error that was wrapped, if any
	Err error
	// A human-readable message describing the error
	Message string
	// The failure category
	Kind Kind
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Component != "" {
		if builder.Len() > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("component=")
		builder.WriteString(e.Component)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithKind sets the failure category of the error.
func (e *Error) WithKind(k Kind) *Error {
	e.Kind = k
	return e
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Configuration creates a new configuration error with a formatted message.
func Configuration(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Kind:    KindConfiguration,
		Stack:   getStackTrace(),
	}
}

// Wrap wraps an error with additional context. The kind of a wrapped *Error
// is preserved so classification survives wrapping.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	e := &Error{
		Err:     err,
		Message: msg,
		Stack:   getStackTrace(),
	}
	var inner *Error
	if stderrors.As(err, &inner) {
		e.Kind = inner.Kind
	}
	return e
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// KindOf returns the failure category of err, walking the wrap chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }

// IsCalculator reports whether err is an external evaluator failure.
func IsCalculator(err error) bool { return KindOf(err) == KindCalculator }

// IsPersistence reports whether err is an artifact write failure.
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if err's
// type contains an Unwrap method returning error.
// Otherwise, Unwrap returns nil.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}
