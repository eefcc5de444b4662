// Package domain defines core types, interfaces, and errors for ducksync.
package domain

import "fmt"

// NotFoundError indicates an unknown source or cache.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConfigurationError indicates an operation attempted before the engine was
// initialized, or against a misconfigured source (e.g. missing credentials).
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// RemoteQueryError indicates a remote warehouse query, auth, or connectivity
// failure.
type RemoteQueryError struct {
	Message string
	Cause   error
}

func (e *RemoteQueryError) Error() string { return e.Message }
func (e *RemoteQueryError) Unwrap() error { return e.Cause }

// ParseOrRewriteError indicates a query could not be parsed or its AST could
// not be regenerated. Always recoverable: the router degrades to passthrough.
type ParseOrRewriteError struct {
	Message string
	Cause   error
}

func (e *ParseOrRewriteError) Error() string { return e.Message }
func (e *ParseOrRewriteError) Unwrap() error { return e.Cause }

// StorageError indicates a physical write or catalog failure in the local
// store or the metadata store.
type StorageError struct {
	Message string
	Cause   error
}

func (e *StorageError) Error() string { return e.Message }
func (e *StorageError) Unwrap() error { return e.Cause }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ErrRemoteQuery creates a RemoteQueryError wrapping cause.
func ErrRemoteQuery(cause error, format string, args ...interface{}) *RemoteQueryError {
	return &RemoteQueryError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrParseOrRewrite creates a ParseOrRewriteError wrapping cause.
func ErrParseOrRewrite(cause error, format string, args ...interface{}) *ParseOrRewriteError {
	return &ParseOrRewriteError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrStorage creates a StorageError wrapping cause.
func ErrStorage(cause error, format string, args ...interface{}) *StorageError {
	return &StorageError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
