package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the per-project config file looked up in the project root.
const DefaultFile = ".bpsdk.yaml"

const packagePlaceholder = "{package}"

// DefaultConfig returns the settings for the BetterPortal SDK.
func DefaultConfig() Config {
	return Config{
		Package:      "@bettercorp/service-base-plugin-betterportal",
		UISource:     "betterportal-ui",
		UIDir:        "betterportal-ui",
		ModulesDir:   "node_modules",
		ManifestFile: "package.json",
		IgnoreFile:   ".gitignore",
		ProjectFlag:  "bsb_project",
		PackageManager: PackageManager{
			Install:   "npm i --save {package}",
			Reinstall: "npm remove {package} && npm i --save {package}",
			Final:     "npm run npmi-all",
		},
		Scripts: []Script{
			{Name: "build-ui", Command: "cd betterportal-ui && npm run build", Description: "builds the UI"},
			{Name: "npmi-ui", Command: "cd ./betterportal-ui && npm i", Description: "installs the UI dependencies"},
			{Name: "npmci-ui", Command: "cd ./betterportal-ui && npm ci", Description: "installs the UI dependencies for CI/CD"},
			{Name: "build-all", Command: "tsc && npm run build-ui", Description: "builds the UI and the BSB plugin"},
			{Name: "npmi-all", Command: "npm i && npm run npmi-ui", Description: "installs the UI and the BSB plugin dependencies"},
			{Name: "npmci-all", Command: "npm ci && npm run npmci-ui", Description: "installs the UI and the BSB plugin dependencies for CI/CD"},
		},
		Files: []string{"bpui/**/*"},
		Ignore: []string{
			"/lib",
			"/bpui",
			"/betterportal-ui/dist",
			"/betterportal-ui/lib",
			"/betterportal-ui/node_modules",
		},
		CopyExclude: []string{},
	}
}

// LoadConfig decodes the YAML file at path over DefaultConfig. Keys missing
// from the file keep their defaults; lists given in the file replace the
// default list.
//
// When required is false a missing file is not an error and the defaults are
// returned as is.
func LoadConfig(fsys afero.Fs, path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports settings the installer cannot run with.
func (c Config) Validate() error {
	required := []struct{ key, value string }{
		{"package", c.Package},
		{"ui_source", c.UISource},
		{"ui_dir", c.UIDir},
		{"modules_dir", c.ModulesDir},
		{"manifest_file", c.ManifestFile},
		{"ignore_file", c.IgnoreFile},
		{"project_flag", c.ProjectFlag},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s must not be empty", r.key)
		}
	}

	// The UI bundle must land in its own directory below the project root.
	uiDir := filepath.Clean(c.UIDir)
	if filepath.IsAbs(uiDir) || uiDir == "." || uiDir == ".." || strings.HasPrefix(uiDir, ".."+string(filepath.Separator)) {
		return fmt.Errorf("ui_dir %q must be a subdirectory of the project", c.UIDir)
	}
	for i, s := range c.Scripts {
		if s.Name == "" {
			return fmt.Errorf("scripts[%d] has no name", i)
		}
	}
	return nil
}

// Command returns a package manager command line with the package name filled in.
func (c Config) Command(line string) string {
	return strings.ReplaceAll(line, packagePlaceholder, c.Package)
}

// ResolvePaths computes the run's paths for the project at projectRoot.
func (c Config) ResolvePaths(projectRoot string) (Paths, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve project root %s: %w", projectRoot, err)
	}

	uiDir := filepath.Join(root, c.UIDir)
	return Paths{
		ProjectRoot:  root,
		RootManifest: filepath.Join(root, c.ManifestFile),
		VendorUI:     filepath.Join(root, c.ModulesDir, filepath.FromSlash(c.Package), c.UISource),
		UIDir:        uiDir,
		UIManifest:   filepath.Join(uiDir, c.ManifestFile),
		IgnoreFile:   filepath.Join(root, c.IgnoreFile),
	}, nil
}

// ProjectRoot picks the directory to install into: the explicit flag value,
// else $INIT_CWD (set by npm when the tool runs as a package script), else
// the working directory.
func ProjectRoot(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if initCwd := os.Getenv("INIT_CWD"); initCwd != "" {
		return initCwd, nil
	}
	return os.Getwd()
}

// Marshal renders cfg as YAML, the format LoadConfig reads.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
