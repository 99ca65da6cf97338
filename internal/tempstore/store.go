// Package tempstore allocates uniquely named files for generated audio.
// Files are never deleted here; whoever receives a path owns it.
package tempstore

import (
	"fmt"
	"os"
)

const defaultPrefix = "ttsform-"

type Store struct {
	dir    string
	prefix string
}

type Option func(*Store)

// WithPrefix sets the file name prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New returns a Store rooted at dir, creating it if needed. An empty dir
// uses the OS temp directory.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}

	return s, nil
}

// Dir returns the directory files are created in.
func (s *Store) Dir() string {
	if s.dir == "" {
		return os.TempDir()
	}
	return s.dir
}

// Allocate creates an empty file ending in suffix and returns its path.
func (s *Store) Allocate(suffix string) (string, error) {
	f, err := os.CreateTemp(s.dir, s.prefix+"*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return path, nil
}
