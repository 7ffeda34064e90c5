package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage implements Storage interface for local filesystem.
type LocalStorage struct {
	basePath  string
	urlPrefix string
}

// LocalConfig holds configuration for local storage.
type LocalConfig struct {
	BasePath  string `mapstructure:"base_path"`
	URLPrefix string `mapstructure:"url_prefix"` // route that serves stored objects
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./data/objects"
	}
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	return &LocalStorage{
		basePath:  absPath,
		urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/"),
	}, nil
}

// fullPath returns the full filesystem path for a key, or "" if the key
// would escape basePath.
func (s *LocalStorage) fullPath(key string) string {
	cleanKey := filepath.Clean("/" + key)
	path := filepath.Join(s.basePath, cleanKey)
	if path != s.basePath && !strings.HasPrefix(path, s.basePath+string(os.PathSeparator)) {
		return ""
	}
	return path
}

// Write stores content from the reader with the given key.
// Content is written to a temp file and renamed into place.
func (s *LocalStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path := s.fullPath(key)
	if path == "" {
		return fmt.Errorf("invalid key: %s", key)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write content: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Read retrieves content for the given key.
func (s *LocalStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	path := s.fullPath(key)
	if path == "" {
		return nil, ErrNotFound
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes the content with the given key.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	path := s.fullPath(key)
	if path == "" {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Exists checks if content with the given key exists.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	path := s.fullPath(key)
	if path == "" {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}

	return !info.IsDir(), nil
}

// GetURL returns the HTTP path the attachment handler serves key from.
// Local URLs do not expire.
func (s *LocalStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return s.urlPrefix + "/" + strings.TrimPrefix(key, "/"), nil
}
