package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrCacheMiss = errors.New("cache miss")

// FileCache stores JSON encoded values of one type under
// <root>/cache/<cacheType>/<key>.
type FileCache[T any] struct {
	dir string
}

func GetCache[T any](root, cacheType string) (*FileCache[T], error) {
	cacheDir := filepath.Join(root, "cache", cacheType)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache[T]{dir: cacheDir}, nil
}

func (c *FileCache[T]) Dir() string {
	return c.dir
}

func (c *FileCache[T]) Get(key string) (*T, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &value, nil
}

func (c *FileCache[T]) Set(key string, value T) error {
	jsonData, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := WriteFileAtomic(filepath.Join(c.dir, key), jsonData); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *FileCache[T]) Delete(key string) error {
	if err := os.Remove(filepath.Join(c.dir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}
