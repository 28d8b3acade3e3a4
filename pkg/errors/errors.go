// Package errors provides structured error handling for the weft runtime.
//
// Errors fall into three groups. Usage errors indicate a broken invariant
// (a hook called outside a render pass, an invalid provider registration)
// and are surfaced to the caller immediately. Resolution misses are reported
// as warnings and the caller receives an empty result. Callback faults from
// listeners and directive lifecycle methods are reported and isolated so
// that sibling callbacks still run.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindUsage indicates API misuse such as a hook without a render session.
	KindUsage
	// KindResolve indicates a dependency resolution miss.
	KindResolve
	// KindCycle indicates a cyclic factory dependency chain.
	KindCycle
	// KindCallback indicates a failing listener or lifecycle callback.
	KindCallback
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates a configuration loading failure.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindResolve:
		return "resolve"
	case KindCycle:
		return "cycle"
	case KindCallback:
		return "callback"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// RuntimeError represents a structured error in the runtime.
type RuntimeError struct {
	// Op is the operation that failed (e.g., "di.Resolve").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Token is the provider token or event topic, if applicable.
	Token string
	// Component is the component name, if applicable.
	Component string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *RuntimeError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s [%s] token=%s: %v", e.Op, e.Kind, e.Token, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "events.Emit").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// UsageError reports a broken runtime invariant caused by the caller.
// Hooks panic with a *UsageError; the runtime recovers it at the render
// boundary and returns it to the caller.
type UsageError struct {
	// Op is the API that was misused (e.g., "core.UseState").
	Op string
	// Component is the component name, if known.
	Component string
	// Message describes the violated invariant.
	Message string
}

func (e *UsageError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s (component %s)", e.Op, e.Message, e.Component)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Usagef builds a UsageError with a formatted message.
func Usagef(op, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// ErrorHandler receives errors reported by the runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *RuntimeError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
