package expense

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageStore defines the interface for receipt image persistence. Images are
// immutable once stored and addressed by a stable, content-derived reference.
type ImageStore interface {
	// Save persists image data and returns its reference. Saving the same
	// bytes twice yields the same reference.
	Save(data []byte, contentType string) (string, error)

	// Get retrieves an image and its content type by reference
	Get(ref string) ([]byte, string, error)

	// Delete removes an image
	Delete(ref string) error
}

// LocalImageStore implements the ImageStore interface on the local
// filesystem, one file per image named by content hash
type LocalImageStore struct {
	basePath string
}

// NewLocalImageStore creates a new LocalImageStore instance
func NewLocalImageStore(basePath string) (*LocalImageStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	return &LocalImageStore{
		basePath: basePath,
	}, nil
}

// Save persists an image and returns its content-hash reference
func (l *LocalImageStore) Save(data []byte, contentType string) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:8]) + extensionFor(contentType)

	path := filepath.Join(l.basePath, ref)
	if _, err := os.Stat(path); err == nil {
		// Same bytes already stored; the reference stands
		return ref, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return ref, nil
}

// Get retrieves an image by reference
func (l *LocalImageStore) Get(ref string) ([]byte, string, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.Base(ref)))
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	return data, contentTypeFor(ref), nil
}

// Delete removes an image
func (l *LocalImageStore) Delete(ref string) error {
	if err := os.Remove(filepath.Join(l.basePath, filepath.Base(ref))); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// extensionFor maps an upload content type to the stored file extension.
// The extension carries the content type back out of the store.
func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}

// contentTypeFor recovers the content type from a reference's extension
func contentTypeFor(ref string) string {
	switch filepath.Ext(ref) {
	case ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
