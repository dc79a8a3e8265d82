// Package domain defines domain-specific errors.
// These errors represent business logic failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrTrackNotFound is returned when a requested track is not in the queue.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistNotFound is returned when a playlist id does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrProfileNotFound is returned when no profile exists for a user or id.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoTrackSelected is returned when a transport command needs a current track.
	ErrNoTrackSelected = errors.New("no track selected")

	// ErrNoSource is returned when a track has no playable URL.
	ErrNoSource = errors.New("track has no playable source")

	// ErrNotInitialized is returned when an operation is attempted on an uninitialized component.
	ErrNotInitialized = errors.New("component not initialized")

	// ErrClosed is returned when a component is used after it was closed.
	ErrClosed = errors.New("component closed")

	// ErrMissingCredential is returned when the search API key is not configured.
	ErrMissingCredential = errors.New("missing search API credential")

	// ErrUnknownCategory is returned for an unknown music category.
	ErrUnknownCategory = errors.New("unknown music category")

	// ErrUnsupportedFormat is returned when a media format cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported media format")

	// ErrScanCancelled is returned when a library scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrNoScreen is returned when no screen client is attached to the bridge.
	ErrNoScreen = errors.New("no screen connected")
)

// BackendError represents an error from a media backend.
// This wraps low-level media library errors with additional context.
type BackendError struct {
	Op      string      // Operation that failed (e.g., "load", "play", "seek")
	Backend BackendKind // Backend that failed
	Source  string      // Source URL or video id (if applicable)
	Message string      // Error message
	Err     error       // Underlying error (if any)
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s backend %s failed for '%s': %s", e.Backend, e.Op, e.Source, e.Message)
	}
	return fmt.Sprintf("%s backend %s failed: %s", e.Backend, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a new BackendError.
func NewBackendError(op string, backend BackendKind, source, message string, err error) *BackendError {
	return &BackendError{
		Op:      op,
		Backend: backend,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// RepositoryError represents an error from a repository.
// This wraps persistence layer errors with additional context.
type RepositoryError struct {
	Op      string // Operation that failed (e.g., "fetch", "upsert", "patch")
	Type    string // Repository type (e.g., "profile", "catalog")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NewRepositoryError creates a new RepositoryError.
func NewRepositoryError(op, repoType, message string, err error) *RepositoryError {
	return &RepositoryError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string      // Field that failed validation
	Value   interface{} // Value that failed validation
	Message string      // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "LibraryService", "PreferenceService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// SearchError represents a failed search request.
type SearchError struct {
	Op    string // "query" or "category"
	Query string // Query text or category name
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("search %s %q failed: %v", e.Op, e.Query, e.Err)
}

// Unwrap returns the underlying error.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// NewSearchError creates a new SearchError.
func NewSearchError(op, query string, err error) *SearchError {
	return &SearchError{
		Op:    op,
		Query: query,
		Err:   err,
	}
}
