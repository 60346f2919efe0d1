package blob

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"streamhub/internal/logging"
)

// ErrInvalidKey marks a key that is empty, absolute, or escapes the root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store is a filesystem-backed object store rooted at a single directory.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root. The directory must already
// exist; startup validates it.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute storage root directory.
func (s *Store) Root() string {
	return s.root
}

// ValidateKey rejects keys that could escape the root: empty keys,
// absolute paths, backslashes, and any ".." component.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	if cleaned := path.Clean(key); cleaned != key {
		return ErrInvalidKey
	}
	return nil
}

// Path maps a key to its absolute filesystem path, confirming containment.
func (s *Store) Path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.root+string(os.PathSeparator)) {
		return "", ErrInvalidKey
	}
	return p, nil
}

// Save writes the reader's contents under key, creating parent directories
// as needed. The file is written to a temporary name first and renamed into
// place so a crash never leaves a partial object at the final key.
func (s *Store) Save(key string, r io.Reader) (int64, error) {
	p, err := s.Path(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return 0, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp blob: %w", err)
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("finalize blob %s: %w", key, err)
	}
	logging.Debug("Blob: saved %s (%d bytes)", key, n)
	return n, nil
}

// Open opens the object at key for reading.
func (s *Store) Open(key string) (*os.File, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Delete removes the object at key and prunes its directory if that leaves
// it empty. A missing object is not an error.
func (s *Store) Delete(key string) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	// Best effort: an empty parent directory is just clutter.
	dir := filepath.Dir(p)
	if dir != s.root {
		_ = os.Remove(dir)
	}
	return nil
}

// URL returns the serving path for a key, with the whole key escaped as a
// single path element.
func URL(key string) string {
	return "/media/" + url.PathEscape(key)
}

// KeyFromURL reverses URL, returning the storage key for a serving path.
func KeyFromURL(u string) (string, error) {
	const prefix = "/media/"
	if !strings.HasPrefix(u, prefix) {
		return "", fmt.Errorf("not a media url: %s", u)
	}
	key, err := url.PathUnescape(strings.TrimPrefix(u, prefix))
	if err != nil {
		return "", fmt.Errorf("unescape media url: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
