// Package imagestore persists item images in a directory, one file per item,
// named by the SHA-1 of the market hash name plus an extension matching the
// image format.
package imagestore

import (
	"crypto/sha1" //nolint:gosec // content addressing only
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extensions are the supported stored formats in probe order.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Store is a directory of cached item images. It is safe for concurrent use:
// files are replaced atomically and different items never share a file.
type Store struct {
	dir string
}

// New creates the directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// Hash returns the hex SHA-1 of a market hash name.
func Hash(marketHashName string) string {
	sum := sha1.Sum([]byte(marketHashName)) //nolint:gosec // content addressing only
	return hex.EncodeToString(sum[:])
}

// ExtensionForContentType maps a declared content type to a file extension,
// defaulting to .png.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "jpeg"):
		return ".jpeg"
	case strings.Contains(ct, "jpg"):
		return ".jpg"
	}
	return ".png"
}

// FileName returns the stored file name of an item for an extension.
func FileName(marketHashName, ext string) string {
	return Hash(marketHashName) + ext
}

// Path returns the absolute location of an item's file for an extension.
func (s *Store) Path(marketHashName, ext string) string {
	return filepath.Join(s.dir, FileName(marketHashName, ext))
}

// Find probes the stored variants of an item. preferred, when set, is tried
// before the fixed order. It returns the file name and extension found.
func (s *Store) Find(marketHashName, preferred string) (string, string, bool, error) {
	order := Extensions
	if preferred != "" {
		order = append([]string{preferred}, Extensions...)
	}
	for _, ext := range order {
		_, err := os.Stat(s.Path(marketHashName, ext))
		if err == nil {
			return FileName(marketHashName, ext), ext, true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", false, fmt.Errorf("failed to probe cached image: %w", err)
		}
	}
	return "", "", false, nil
}

// Save writes data for an item under the extension matching contentType and
// removes variants stored under any other extension. It returns the file name.
func (s *Store) Save(marketHashName string, data []byte, contentType string) (string, error) {
	ext := ExtensionForContentType(contentType)

	if err := s.removeVariants(marketHashName, ext); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+Hash(marketHashName)+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close image: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(marketHashName, ext)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return FileName(marketHashName, ext), nil
}

func (s *Store) removeVariants(marketHashName, keep string) error {
	for _, ext := range Extensions {
		if ext == keep {
			continue
		}
		err := os.Remove(s.Path(marketHashName, ext))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove stale image variant %s: %w", ext, err)
		}
	}
	return nil
}
