package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"

	"bpsdk-setup/internal/logger"
)

// UpdateIgnoreFile makes sure every entry is a line of the ignore file at
// path, appending the missing ones in order. A missing file is created.
// Lines are compared after trimming surrounding whitespace. The file's line
// ending (CRLF or LF) is kept, and the file ends with a newline.
//
// It returns the entries that were added; nothing is written when that list
// is empty.
func UpdateIgnoreFile(fsys afero.Fs, path string, entries []string) ([]string, error) {
	var content string
	mode := os.FileMode(0644)

	data, err := afero.ReadFile(fsys, path)
	switch {
	case err == nil:
		content = string(data)
		if info, err := fsys.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("[DEBUG] %s does not exist yet, creating it\n", path)
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	eol := "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}

	// Lines are split on LF so a file mixing both endings is read correctly;
	// it is written back with eol throughout.
	var lines []string
	if content != "" {
		body := strings.TrimSuffix(strings.TrimSuffix(content, "\n"), "\r")
		for _, line := range strings.Split(body, "\n") {
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
	}

	existing := make(map[string]bool, len(lines))
	for _, line := range lines {
		existing[strings.TrimSpace(line)] = true
	}

	var added []string
	for _, entry := range entries {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" || existing[trimmed] {
			logger.Debug("[DEBUG] Ignore entry already present or empty: %s\n", trimmed)
			continue
		}
		lines = append(lines, trimmed)
		existing[trimmed] = true
		added = append(added, trimmed)
	}
	if len(added) == 0 {
		return nil, nil
	}

	out := strings.Join(lines, eol) + eol
	if err := afero.WriteFile(fsys, path, []byte(out), mode); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return added, nil
}
