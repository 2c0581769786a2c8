// Package util provides shared error types and request helpers for wiggly.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., RouteConflictError, ModuleLoadError). Each
//     type implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrModuleLoad     = errors.New("module load failed")
	ErrNotCallable    = errors.New("export is not callable")
	ErrRouteConflict  = errors.New("route conflict")
	ErrInvalidPattern = errors.New("invalid route pattern")
	ErrTransport      = errors.New("transport failure")
	ErrWatch          = errors.New("watch failure")
	ErrInvalidState   = errors.New("invalid lifecycle state")
	ErrConfigInvalid  = errors.New("invalid configuration")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// RouteConflictError reports two or more files compiling to the same
// method and pattern.
type RouteConflictError struct {
	Method  string
	Pattern string
	Files   []string
}

// Error implements the error interface.
func (e *RouteConflictError) Error() string {
	return fmt.Sprintf("route conflict: %s %s defined by %s",
		e.Method, e.Pattern, strings.Join(e.Files, ", "))
}

// Is checks if the error matches the target.
func (e *RouteConflictError) Is(target error) bool {
	if target == ErrRouteConflict {
		return true
	}
	_, ok := target.(*RouteConflictError)
	return ok
}

// NewRouteConflictError creates a new RouteConflictError.
func NewRouteConflictError(method, pattern string, files ...string) *RouteConflictError {
	return &RouteConflictError{Method: method, Pattern: pattern, Files: files}
}

// InvalidPatternError reports a pattern that cannot be compiled.
type InvalidPatternError struct {
	Pattern string
	Source  string
	Reason  string
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid pattern %s (%s): %s", e.Pattern, e.Source, e.Reason)
	}
	return fmt.Sprintf("invalid pattern %s: %s", e.Pattern, e.Reason)
}

// Is checks if the error matches the target.
func (e *InvalidPatternError) Is(target error) bool {
	if target == ErrInvalidPattern {
		return true
	}
	_, ok := target.(*InvalidPatternError)
	return ok
}

// NewInvalidPatternError creates a new InvalidPatternError.
func NewInvalidPatternError(pattern, source, reason string) *InvalidPatternError {
	return &InvalidPatternError{Pattern: pattern, Source: source, Reason: reason}
}

// ModuleLoadError reports a route or middleware file that could not be
// turned into a handler set or middleware.
type ModuleLoadError struct {
	Path   string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ModuleLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("load %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ModuleLoadError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ModuleLoadError) Is(target error) bool {
	if target == ErrModuleLoad {
		return true
	}
	_, ok := target.(*ModuleLoadError)
	return ok || errors.Is(e.Cause, target)
}

// NewModuleLoadError creates a new ModuleLoadError.
func NewModuleLoadError(path, reason string, cause error) *ModuleLoadError {
	return &ModuleLoadError{Path: path, Reason: reason, Cause: cause}
}

// TransportError reports a transport that failed to bind or start.
type TransportError struct {
	Kind  string
	Addr  string
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s on %s: %v", e.Kind, e.Addr, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	_, ok := target.(*TransportError)
	return ok || errors.Is(e.Cause, target)
}

// NewTransportError creates a new TransportError.
func NewTransportError(kind, addr string, cause error) *TransportError {
	return &TransportError{Kind: kind, Addr: addr, Cause: cause}
}

// WatchError reports a path the watcher could not attach to.
type WatchError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *WatchError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *WatchError) Is(target error) bool {
	if target == ErrWatch {
		return true
	}
	_, ok := target.(*WatchError)
	return ok || errors.Is(e.Cause, target)
}

// NewWatchError creates a new WatchError.
func NewWatchError(path string, cause error) *WatchError {
	return &WatchError{Path: path, Cause: cause}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsStructuralBuildError returns true if err contains a route conflict or an
// invalid pattern. Such errors abort a build; everything else a build
// produces is absorbed as a warning.
func IsStructuralBuildError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRouteConflict) || errors.Is(err, ErrInvalidPattern)
}
