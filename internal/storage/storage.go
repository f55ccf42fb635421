// Package storage defines the blob store that hosts uploaded images.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a key does not exist in the backend
var ErrObjectNotFound = errors.New("object not found")

// Backend defines the interface for blob store backends
type Backend interface {
	// Upload stores the reader's content under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader, contentType string) error

	// Download opens the object stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object stored under objectKey
	Delete(ctx context.Context, objectKey string) error
}
