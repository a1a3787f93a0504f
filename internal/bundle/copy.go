// Package bundle moves the vendored UI bundle into the consumer project:
// it unpacks bundle archives and copies directory trees.
package bundle

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"bpsdk-setup/internal/logger"
)

// CopyTree copies the directory src onto dst, creating directories as
// needed and overwriting files that already exist. Files present only under
// dst are left alone. Paths (relative to src, slash-separated) matching any
// of the doublestar patterns in exclude are skipped, directories with their
// whole subtree. It returns the number of files copied.
func CopyTree(fsys afero.Fs, src, dst string, exclude []string) (int, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return 0, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	info, err := fsys.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("bundle source %s: %w", src, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("bundle source %s is not a directory", src)
	}

	copied := 0
	err = afero.Walk(fsys, src, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && excluded(filepath.ToSlash(rel), exclude) {
			logger.Debug("[DEBUG] Skipping excluded %s\n", rel)
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		switch {
		case info.IsDir():
			return fsys.MkdirAll(target, 0755)
		case info.Mode()&fs.ModeSymlink != 0:
			return copySymlink(fsys, path, target)
		default:
			if err := copyFile(fsys, path, target, info.Mode().Perm()); err != nil {
				return err
			}
			copied++
			return nil
		}
	})
	if err != nil {
		return copied, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return copied, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// copyFile copies src to dst with the given permissions, replacing dst.
func copyFile(fsys afero.Fs, src, dst string, mode os.FileMode) (err error) {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	// OpenFile only applies mode to new files.
	return fsys.Chmod(dst, mode)
}

// copySymlink recreates the link at dst. Filesystems without symlink
// support skip the entry.
func copySymlink(fsys afero.Fs, src, dst string) error {
	reader, canRead := fsys.(afero.LinkReader)
	linker, canLink := fsys.(afero.Linker)
	if !canRead || !canLink {
		logger.Warn("[WARN] Symlink %s not copied: filesystem has no symlink support\n", src)
		return nil
	}

	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return err
	}
	if err := fsys.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return linker.SymlinkIfPossible(target, dst)
}
