package bundle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"bpsdk-setup/internal/logger"
)

// IsURL reports whether a --bundle value is an http(s) URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Download saves the archive at rawURL into destDir and returns the local
// path. The file keeps the URL's base name so IsArchive can tell its format.
func Download(ctx context.Context, client *http.Client, fsys afero.Fs, rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid bundle URL %s: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return "", fmt.Errorf("bundle URL %s does not name a file", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to GET %s: %w", rawURL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to GET %s: HTTP status %d", rawURL, resp.StatusCode)
	}

	dest := filepath.Join(destDir, name)
	out, err := fsys.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close %s: %v\n", dest, cerr)
		}
	}()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to write response to %s: %w", dest, err)
	}
	logger.Debug("[DEBUG] Downloaded %d bytes to %s\n", n, dest)
	return dest, nil
}
