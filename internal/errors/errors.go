// Package errors provides structured error types and exit codes for nodetest.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (tests failed, build failed, etc.)
	ExitConfigError      = 2 // Configuration or precondition error
	ExitEnvironmentError = 3 // Environment error (missing binary, unreadable workspace, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindPrecondition
	KindCompile
	KindAlias
	KindEnvironment
)

// String returns a short label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindPrecondition:
		return "precondition"
	case KindCompile:
		return "compile"
	case KindAlias:
		return "alias"
	case KindEnvironment:
		return "environment"
	default:
		return "runtime"
	}
}

// Error is the base error type for nodetest.
type Error struct {
	Kind    ErrorKind
	Message string
	Project string // Project name if applicable
	Step    string // Pipeline step if applicable
	Cause   error  // Underlying error
}

func (e *Error) Error() string {
	if e.Project != "" && e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Project, e.Step, e.Message)
	}
	if e.Project != "" {
		return fmt.Sprintf("[%s] %s", e.Project, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindPrecondition:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// Config creates a new configuration error.
func Config(message string) *Error {
	return &Error{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *Error {
	return Config(fmt.Sprintf(format, args...))
}

// Precondition creates an error for a missing project or configuration file.
// Precondition errors abort a run before any side effect.
func Precondition(message string) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Message: message,
	}
}

// Environment creates a new environment error.
func Environment(message string) *Error {
	return &Error{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *Error {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *Error {
	return &Error{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// StepError creates an error for a failed pipeline step of a project.
func StepError(kind ErrorKind, project, step string, cause error) *Error {
	msg := "failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Kind:    kind,
		Project: project,
		Step:    step,
		Message: msg,
		Cause:   cause,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *Error {
	return &Error{
		Kind:    KindPrecondition,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// IsKind reports whether err is or wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitRuntimeError
}
