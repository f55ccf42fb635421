package domain

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates the referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a missing, invalid or expired credential
	ErrUnauthenticated = errors.New("not authorized")

	// ErrForbidden indicates a valid identity without the required role
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidToken indicates a token that is malformed, wrongly signed or expired
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials is returned by login for both unknown email and wrong password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateEmail indicates an account with the email already exists
	ErrDuplicateEmail = errors.New("user already exists")

	// ErrDuplicateTitle indicates a post with the same title already exists
	ErrDuplicateTitle = errors.New("a post with this title already exists")

	// ErrDuplicateSlug indicates the slug was taken between the check and the write
	ErrDuplicateSlug = errors.New("a post with this slug already exists")

	// ErrMediaUploadFailed indicates the blob store rejected an upload
	ErrMediaUploadFailed = errors.New("image upload failed")

	// ErrRateLimited indicates the caller exceeded a request budget
	ErrRateLimited = errors.New("too many requests")
)

// ValidationError represents missing or malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MediaError represents a failed blob store operation
type MediaError struct {
	Op  string
	Key string
	Err error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// Is reports upload failures as ErrMediaUploadFailed
func (e *MediaError) Is(target error) bool {
	return target == ErrMediaUploadFailed && e.Op == "upload"
}
