package bundle

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip" // .7z archives
	"github.com/spf13/afero"
	"github.com/xi2/xz" // .tar.xz archives

	"bpsdk-setup/internal/logger"
)

// archiveSuffixes lists the bundle formats ExtractArchive understands.
var archiveSuffixes = []string{".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".tar", ".zip", ".7z"}

// npmPackPrefix is the top directory of a tarball produced by `npm pack`.
const npmPackPrefix = "package"

// IsArchive reports whether path names a supported bundle archive.
func IsArchive(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range archiveSuffixes {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ExtractArchive unpacks the archive src into the directory dest.
func ExtractArchive(fsys afero.Fs, src, dest string) error {
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		logger.Debug("[DEBUG] Extracting zip archive %s\n", src)
		return extractZip(fsys, src, dest)
	case strings.HasSuffix(lower, ".7z"):
		logger.Debug("[DEBUG] Extracting 7z archive %s\n", src)
		return extract7z(fsys, src, dest)
	case IsArchive(lower):
		logger.Debug("[DEBUG] Extracting tar archive %s\n", src)
		return extractTar(fsys, src, dest)
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}
}

// LocateUI returns the UI source directory inside an extracted bundle:
// package/<uiSource> (npm pack layout), then <uiSource>, then root itself.
func LocateUI(fsys afero.Fs, root, uiSource string) string {
	for _, candidate := range []string{
		filepath.Join(root, npmPackPrefix, uiSource),
		filepath.Join(root, uiSource),
	} {
		if ok, _ := afero.DirExists(fsys, candidate); ok {
			return candidate
		}
	}
	return root
}

func extractTar(fsys afero.Fs, src, dest string) error {
	f, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(lower, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(lower, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fsys.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(fsys, target, hdr.FileInfo().Mode().Perm(), tr); err != nil {
				return err
			}
		default:
			logger.Debug("[DEBUG] Skipping tar entry %s (type %c)\n", hdr.Name, hdr.Typeflag)
		}
	}
}

func extractZip(fsys afero.Fs, src, dest string) error {
	f, size, err := openSized(fsys, src)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := zip.NewReader(f, size)
	if err != nil {
		return err
	}
	for _, zf := range r.File {
		if err := extractEntry(fsys, dest, zf.Name, zf.FileInfo(), zf.Open); err != nil {
			return err
		}
	}
	return nil
}

func extract7z(fsys afero.Fs, src, dest string) error {
	f, size, err := openSized(fsys, src)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := sevenzip.NewReader(f, size)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	for _, sf := range r.File {
		if err := extractEntry(fsys, dest, sf.Name, sf.FileInfo(), sf.Open); err != nil {
			return err
		}
	}
	return nil
}

// extractEntry writes one zip or 7z member below dest.
func extractEntry(fsys afero.Fs, dest, name string, info os.FileInfo, open func() (io.ReadCloser, error)) error {
	target, err := safeJoin(dest, name)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fsys.MkdirAll(target, 0755)
	}

	rc, err := open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeEntry(fsys, target, info.Mode().Perm(), rc)
}

func writeEntry(fsys afero.Fs, target string, mode os.FileMode, r io.Reader) (err error) {
	if mode == 0 {
		mode = 0644
	}
	if err := fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := fsys.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, r)
	return err
}

func openSized(fsys afero.Fs, path string) (afero.File, int64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// safeJoin joins an archive member name onto dest, refusing names that
// would land outside dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}
