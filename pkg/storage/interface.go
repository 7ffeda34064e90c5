package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound is returned by Read when the key does not exist.
var ErrNotFound = errors.New("object not found")

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

// Storage defines the interface for object storage operations.
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	// The contentType parameter specifies the MIME type of the content.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key.
	// The caller is responsible for closing the returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content with the given key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if content with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns a URL for accessing the content.
	// For local storage, this is a path served by the attachment handler.
	// For S3, this is a presigned URL valid for the specified duration.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Config selects and configures a storage driver.
type Config struct {
	Driver string      `mapstructure:"driver"` // "local", "s3"
	Local  LocalConfig `mapstructure:"local"`
	S3     S3Config    `mapstructure:"s3"`
}

// New creates the Storage selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case DriverS3:
		return NewS3Storage(ctx, cfg.S3)
	case DriverLocal, "":
		return NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}
}
