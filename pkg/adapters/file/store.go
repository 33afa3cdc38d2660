package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
)

const ext = ".val"

// DefaultDir is used when New is given an empty directory.
var DefaultDir = filepath.Join(".liftlog", "data")

// Store implements ports.KVStore on the local filesystem, one file per key.
// Keys are path-escaped so any string is a valid key.
type Store struct {
	BasePath string
}

var _ ports.KVStore = (*Store)(nil)
var _ ports.KeyLister = (*Store)(nil)

// New creates a Store rooted at basePath.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.BasePath, url.PathEscape(key)+ext)
}

// Get reads the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", domain.ErrEmptyKey
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return string(data), nil
}

// Set writes value atomically: temp file, fsync, rename.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure data directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.BasePath, "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.WriteString(value); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(key)
	if err := os.Rename(tmpPath, dest); err != nil {
		// Windows refuses to rename over an existing file.
		if _, statErr := os.Stat(dest); statErr == nil {
			if rmErr := os.Remove(dest); rmErr != nil {
				return fmt.Errorf("failed to replace %q: %w", key, rmErr)
			}
			err = os.Rename(tmpPath, dest)
		}
		if err != nil {
			return fmt.Errorf("failed to rename temp file for %q: %w", key, err)
		}
	}
	return nil
}

// Remove deletes the file for key. A missing file is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return domain.ErrEmptyKey
	}

	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

// Keys lists the stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, "tmp-") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
