package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Store.Read when no manifest exists at the path.
var ErrNotFound = errors.New("manifest not found")

// Store reads and writes manifests on a filesystem.
type Store struct {
	fs afero.Fs
}

// NewStore returns a Store backed by fsys.
func NewStore(fsys afero.Fs) *Store {
	return &Store{fs: fsys}
}

// Read parses the manifest at path. A missing file yields an error matching
// ErrNotFound; unparseable content yields a wrapped parse error.
func (s *Store) Read(path string) (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// ReadOptional is Read with a missing file reported as a nil manifest.
func (s *Store) ReadOptional(path string) (*Manifest, error) {
	m, err := s.Read(path)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// Write replaces the file at path with the encoded manifest, keeping the
// permissions of an existing file.
func (s *Store) Write(path string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	mode := os.FileMode(0644)
	if info, err := s.fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(s.fs, path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
