package config

// Config describes what the installer installs and where it puts it.
// Every field has a default (see DefaultConfig); a YAML file only needs the
// keys it wants to change.
type Config struct {
	// Package is the SDK plugin installed through the package manager.
	Package string `yaml:"package"`
	// UISource is the vendored UI directory inside the installed package.
	UISource string `yaml:"ui_source"`
	// UIDir is where the UI bundle is copied to, relative to the project root.
	UIDir string `yaml:"ui_dir"`
	// ModulesDir is the package manager's install directory.
	ModulesDir string `yaml:"modules_dir"`
	// ManifestFile is the manifest file name, used for both the root
	// project and the UI sub-project.
	ManifestFile string `yaml:"manifest_file"`
	// IgnoreFile is the VCS ignore file updated with Ignore.
	IgnoreFile string `yaml:"ignore_file"`
	// ProjectFlag is the root manifest key that must be true for the
	// project to be eligible.
	ProjectFlag string `yaml:"project_flag"`

	PackageManager PackageManager `yaml:"package_manager"`

	// Scripts are set on the root manifest, in this order.
	Scripts []Script `yaml:"scripts"`
	// Files are glob patterns appended to the root manifest's "files".
	Files []string `yaml:"files"`
	// Ignore lists lines ensured in the ignore file.
	Ignore []string `yaml:"ignore"`
	// CopyExclude lists doublestar globs, relative to the bundle root, that
	// are not copied.
	CopyExclude []string `yaml:"copy_exclude"`
}

// PackageManager holds the shell command lines run in the project root.
// "{package}" is replaced with Config.Package.
type PackageManager struct {
	Install   string `yaml:"install"`
	Reinstall string `yaml:"reinstall"`
	Final     string `yaml:"final"`
}

// Script is one root manifest script entry (e.g. build-ui = cd betterportal-ui && npm run build).
// Description is only shown in the post-install summary.
type Script struct {
	Name        string `yaml:"name"`
	Command     string `yaml:"command"`
	Description string `yaml:"description,omitempty"`
}

// Paths are the absolute locations one installer run works on. They are
// resolved once from the Config and the project root and passed down
// explicitly.
type Paths struct {
	ProjectRoot  string
	RootManifest string
	VendorUI     string
	UIDir        string
	UIManifest   string
	IgnoreFile   string
}
