package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore stores and releases opaque binary blobs addressed by locator.
type BlobStore interface {
	Save(r io.Reader, ext string) (string, error)
	Delete(locator string) error
}

// LocalStore keeps blobs on the local filesystem under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Save writes the blob under a fresh UUID-based locator and returns it.
func (s *LocalStore) Save(r io.Reader, ext string) (string, error) {
	name := strings.ReplaceAll(uuid.New().String(), "-", "")
	if ext != "" {
		name = name + "." + strings.TrimPrefix(ext, ".")
	}

	path := filepath.Join(s.root, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	return name, nil
}

// Delete removes the blob. It may fail independently of any metadata
// deletion; callers decide whether that is fatal.
func (s *LocalStore) Delete(locator string) error {
	// Locators are generated by Save; reject anything that escapes the root.
	if locator == "" || strings.Contains(locator, "/") || strings.Contains(locator, "..") {
		return fmt.Errorf("invalid blob locator: %q", locator)
	}

	if err := os.Remove(filepath.Join(s.root, locator)); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", locator, err)
	}
	return nil
}
