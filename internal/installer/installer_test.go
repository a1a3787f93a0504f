package installer_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bpsdk-setup/internal/config"
	"bpsdk-setup/internal/installer"
	"bpsdk-setup/internal/logger"
	"bpsdk-setup/internal/runner"
)

const (
	projectRoot = "/project"
	pkg         = "@bettercorp/service-base-plugin-betterportal"
	vendorDir   = "/project/node_modules/@bettercorp/service-base-plugin-betterportal/betterportal-ui"

	vendoredUI = `{
  "name": "betterportal-ui",
  "version": "2.0.0",
  "scripts": {
    "build": "vite build"
  },
  "dependencies": {
    "vue": "^3.4.0"
  }
}
`
)

// fakeRunner plays the package manager: install commands drop the vendored
// UI into node_modules and record the dependency in the root manifest.
type fakeRunner struct {
	fs       afero.Fs
	commands []string
	fail     string
}

func (f *fakeRunner) Run(_ context.Context, dir, command string) (string, error) {
	f.commands = append(f.commands, command)
	if command == f.fail {
		return "npm ERR! boom\n", &runner.ExitError{Command: command, Status: 1, Output: "npm ERR! boom\n"}
	}
	if strings.Contains(command, "npm i --save") {
		if err := afero.WriteFile(f.fs, filepath.Join(vendorDir, "package.json"), []byte(vendoredUI), 0644); err != nil {
			return "", err
		}
		if err := afero.WriteFile(f.fs, filepath.Join(vendorDir, "src/main.ts"), []byte("console.log('ui')\n"), 0644); err != nil {
			return "", err
		}
		root, err := afero.ReadFile(f.fs, filepath.Join(dir, "package.json"))
		if err != nil {
			return "", err
		}
		if strings.Contains(string(root), pkg) {
			return "changed 1 package\n", nil
		}
		updated := strings.Replace(string(root), `"bsb_project": true`, `"bsb_project": true,
  "dependencies": {
    "`+pkg+`": "^1.0.0"
  }`, 1)
		if err := afero.WriteFile(f.fs, filepath.Join(dir, "package.json"), []byte(updated), 0644); err != nil {
			return "", err
		}
	}
	return "added 1 package\n", nil
}

type fixture struct {
	fs     afero.Fs
	runner *fakeRunner
	cfg    config.Config
	paths  config.Paths
}

func newFixture(t *testing.T, rootManifest string) *fixture {
	t.Helper()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(color.Output) })

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(projectRoot, 0755))
	if rootManifest != "" {
		writeFile(t, fs, filepath.Join(projectRoot, "package.json"), rootManifest)
	}

	cfg := config.DefaultConfig()
	paths, err := cfg.ResolvePaths(projectRoot)
	require.NoError(t, err)

	return &fixture{fs: fs, runner: &fakeRunner{fs: fs}, cfg: cfg, paths: paths}
}

func (f *fixture) run(t *testing.T, opts installer.Options) (installer.Result, error) {
	t.Helper()
	return installer.New(f.fs, f.runner, f.cfg, f.paths, opts).Run(context.Background())
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

const optedIn = `{
  "name": "my-plugin",
  "version": "1.0.0",
  "bsb_project": true
}
`

func TestRun_FreshInstall(t *testing.T) {
	f := newFixture(t, optedIn)

	res, err := f.run(t, installer.Options{})
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.False(t, res.Reinstalled)
	assert.False(t, res.Reconciled)
	assert.Equal(t, 2, res.FilesCopied)
	assert.Equal(t, []string{"npm i --save " + pkg, "npm run npmi-all"}, f.runner.commands)

	assert.Equal(t, vendoredUI, readFile(t, f.fs, "/project/betterportal-ui/package.json"))
	assert.Equal(t, "console.log('ui')\n", readFile(t, f.fs, "/project/betterportal-ui/src/main.ts"))

	assert.Equal(t, `{
  "name": "my-plugin",
  "version": "1.0.0",
  "bsb_project": true,
  "dependencies": {
    "@bettercorp/service-base-plugin-betterportal": "^1.0.0"
  },
  "scripts": {
    "build-ui": "cd betterportal-ui && npm run build",
    "npmi-ui": "cd ./betterportal-ui && npm i",
    "npmci-ui": "cd ./betterportal-ui && npm ci",
    "build-all": "tsc && npm run build-ui",
    "npmi-all": "npm i && npm run npmi-ui",
    "npmci-all": "npm ci && npm run npmci-ui"
  },
  "files": [
    "bpui/**/*"
  ]
}
`, readFile(t, f.fs, "/project/package.json"))

	assert.Equal(t, "/lib\n/bpui\n/betterportal-ui/dist\n/betterportal-ui/lib\n/betterportal-ui/node_modules\n",
		readFile(t, f.fs, "/project/.gitignore"))
	assert.Len(t, res.IgnoreAdded, 5)
}

func TestRun_UpdateReconcilesUIManifest(t *testing.T) {
	f := newFixture(t, `{
  "name": "my-plugin",
  "bsb_project": true,
  "dependencies": {
    "@bettercorp/service-base-plugin-betterportal": "^0.9.0"
  },
  "files": ["lib/**/*"]
}
`)
	writeFile(t, f.fs, "/project/betterportal-ui/package.json", `{
  "name": "my-portal",
  "version": "0.3.1",
  "scripts": {
    "build": "vite build --mode custom"
  },
  "dependencies": {
    "vue": "^3.2.0",
    "chart.js": "^4.0.0"
  }
}
`)
	writeFile(t, f.fs, "/project/betterportal-ui/src/custom.ts", "keep me\n")

	res, err := f.run(t, installer.Options{})
	require.NoError(t, err)

	assert.True(t, res.Reinstalled)
	assert.True(t, res.Reconciled)
	assert.Equal(t, []string{
		"npm remove " + pkg + " && npm i --save " + pkg,
		"npm run npmi-all",
	}, f.runner.commands)

	assert.JSONEq(t, `{
  "name": "my-portal",
  "version": "0.3.1",
  "scripts": {"build": "vite build --mode custom"},
  "dependencies": {"vue": "^3.4.0", "chart.js": "^4.0.0"}
}`, readFile(t, f.fs, "/project/betterportal-ui/package.json"))
	assert.Equal(t, "keep me\n", readFile(t, f.fs, "/project/betterportal-ui/src/custom.ts"))
	assert.Contains(t, readFile(t, f.fs, "/project/package.json"), `"files": [
    "lib/**/*",
    "bpui/**/*"
  ]`)
}

func TestRun_CommandOutputOnlyWithDebug(t *testing.T) {
	f := newFixture(t, optedIn)
	var out bytes.Buffer
	logger.SetOutput(&out)

	_, err := f.run(t, installer.Options{})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "[INFO] Installing "+pkg)
	assert.NotContains(t, out.String(), "added 1 package")
}

func TestRun_SecondRunIsStable(t *testing.T) {
	f := newFixture(t, optedIn)

	_, err := f.run(t, installer.Options{})
	require.NoError(t, err)
	root := readFile(t, f.fs, "/project/package.json")
	ui := readFile(t, f.fs, "/project/betterportal-ui/package.json")
	ignore := readFile(t, f.fs, "/project/.gitignore")

	res, err := f.run(t, installer.Options{})
	require.NoError(t, err)

	assert.True(t, res.Reinstalled)
	assert.True(t, res.Reconciled)
	assert.Empty(t, res.IgnoreAdded)
	assert.Equal(t, root, readFile(t, f.fs, "/project/package.json"))
	assert.JSONEq(t, ui, readFile(t, f.fs, "/project/betterportal-ui/package.json"))
	assert.Equal(t, ignore, readFile(t, f.fs, "/project/.gitignore"))
}

func TestRun_SelfPackageSkipped(t *testing.T) {
	f := newFixture(t, `{"name": "`+pkg+`", "bsb_project": true}`)

	res, err := f.run(t, installer.Options{})
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Empty(t, f.runner.commands)
	exists, err := afero.Exists(f.fs, "/project/.gitignore")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_RefusedProjects(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     error
	}{
		{"no manifest", "", installer.ErrNoManifest},
		{"flag missing", `{"name": "x"}`, installer.ErrNotOptedIn},
		{"flag not boolean", `{"name": "x", "bsb_project": "true"}`, installer.ErrNotOptedIn},
		{"flag false", `{"name": "x", "bsb_project": false}`, installer.ErrNotOptedIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.manifest)

			_, err := f.run(t, installer.Options{})

			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.runner.commands)
		})
	}
}

func TestRun_MalformedRootManifest(t *testing.T) {
	f := newFixture(t, `{"name": `)

	_, err := f.run(t, installer.Options{})

	require.Error(t, err)
	assert.Empty(t, f.runner.commands)
}

func TestRun_InstallFailureStops(t *testing.T) {
	f := newFixture(t, optedIn)
	f.runner.fail = "npm i --save " + pkg

	_, err := f.run(t, installer.Options{})

	var exitErr *runner.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Status)
	assert.ErrorContains(t, err, "npm ERR! boom")
	exists, err := afero.DirExists(f.fs, "/project/betterportal-ui")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_FinalCommandFailureReported(t *testing.T) {
	f := newFixture(t, optedIn)
	f.runner.fail = "npm run npmi-all"

	_, err := f.run(t, installer.Options{})

	var exitErr *runner.ExitError
	require.ErrorAs(t, err, &exitErr)
	// Everything before the final install already happened.
	assert.Contains(t, readFile(t, f.fs, "/project/package.json"), `"build-ui"`)
}

func TestRun_BundleMissing(t *testing.T) {
	f := newFixture(t, optedIn)

	_, err := f.run(t, installer.Options{SkipInstall: true})

	require.ErrorIs(t, err, installer.ErrBundleMissing)
	assert.Empty(t, f.runner.commands)
}

func TestRun_BundleWithoutManifest(t *testing.T) {
	f := newFixture(t, optedIn)
	writeFile(t, f.fs, "/bundle/betterportal-ui/index.html", "<html></html>")

	_, err := f.run(t, installer.Options{SkipInstall: true, Bundle: "/bundle"})

	require.ErrorIs(t, err, installer.ErrBundleNoManifest)
}

func TestRun_BundleDirectory(t *testing.T) {
	f := newFixture(t, optedIn)
	writeFile(t, f.fs, "/bundle/betterportal-ui/package.json", vendoredUI)

	res, err := f.run(t, installer.Options{SkipInstall: true, Bundle: "/bundle"})
	require.NoError(t, err)

	assert.Empty(t, f.runner.commands)
	assert.Equal(t, 1, res.FilesCopied)
	assert.Equal(t, vendoredUI, readFile(t, f.fs, "/project/betterportal-ui/package.json"))
}

func TestRun_BundleArchive(t *testing.T) {
	f := newFixture(t, optedIn)
	writeFile(t, f.fs, "/downloads/ui.tgz", string(packTarball(t, map[string]string{
		"package/package.json":                 `{"name": "` + pkg + `"}`,
		"package/betterportal-ui/package.json": vendoredUI,
		"package/betterportal-ui/src/index.ts": "export {}\n",
	})))

	res, err := f.run(t, installer.Options{SkipInstall: true, Bundle: "/downloads/ui.tgz"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.FilesCopied)
	assert.Equal(t, vendoredUI, readFile(t, f.fs, "/project/betterportal-ui/package.json"))
	assert.Equal(t, "export {}\n", readFile(t, f.fs, "/project/betterportal-ui/src/index.ts"))
}

func TestRun_BundleURL(t *testing.T) {
	archive := packTarball(t, map[string]string{"package/betterportal-ui/package.json": vendoredUI})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	defer srv.Close()
	f := newFixture(t, optedIn)

	res, err := f.run(t, installer.Options{
		SkipInstall: true,
		Bundle:      srv.URL + "/ui-2.0.0.tgz",
		HTTPClient:  srv.Client(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.FilesCopied)
	assert.Equal(t, vendoredUI, readFile(t, f.fs, "/project/betterportal-ui/package.json"))
}

func TestUsage_ListsScripts(t *testing.T) {
	usage := installer.Usage(config.DefaultConfig())

	for _, name := range []string{"build-ui", "npmi-ui", "npmci-ui", "build-all", "npmi-all", "npmci-all"} {
		assert.Contains(t, usage, " - "+name+" (")
	}
}

func packTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}
