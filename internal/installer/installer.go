package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"bpsdk-setup/internal/bundle"
	"bpsdk-setup/internal/config"
	"bpsdk-setup/internal/logger"
	"bpsdk-setup/internal/manifest"
	"bpsdk-setup/internal/runner"
)

var (
	// ErrNoManifest means the project root has no manifest file.
	ErrNoManifest = errors.New("no package.json file found in the project directory")
	// ErrNotOptedIn means the root manifest lacks the opt-in flag.
	ErrNotOptedIn = errors.New("this is not a BetterPortal SDK project, install @bettercorp/better-service-base first")
	// ErrBundleMissing means no UI bundle exists where it is copied from.
	ErrBundleMissing = errors.New("BetterPortal UI SDK not found")
	// ErrBundleNoManifest means the copied bundle did not contain a manifest.
	ErrBundleNoManifest = errors.New("UI bundle has no manifest")
)

// Options tune a single run.
type Options struct {
	// SkipInstall skips both package manager runs.
	SkipInstall bool
	// Bundle, when set, is a directory, archive or archive URL copied from
	// instead of the installed package.
	Bundle string
	// HTTPClient downloads URL bundles; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Result summarizes what a run changed.
type Result struct {
	// Skipped is set when the project is the SDK plugin itself.
	Skipped     bool
	Reinstalled bool
	FilesCopied int
	// Reconciled is set when a previous UI manifest was merged into the new one.
	Reconciled  bool
	IgnoreAdded []string
}

// Installer installs or updates the UI SDK in one project.
type Installer struct {
	fs    afero.Fs
	run   runner.Runner
	cfg   config.Config
	paths config.Paths
	opts  Options
	store *manifest.Store
}

// New returns an Installer working on fsys and running package manager
// commands through run.
func New(fsys afero.Fs, run runner.Runner, cfg config.Config, paths config.Paths, opts Options) *Installer {
	return &Installer{
		fs:    fsys,
		run:   run,
		cfg:   cfg,
		paths: paths,
		opts:  opts,
		store: manifest.NewStore(fsys),
	}
}

// Run performs the whole installation. Any error ends the run; steps that
// already completed are not rolled back.
func (i *Installer) Run(ctx context.Context) (Result, error) {
	var res Result

	root, err := i.checkProject()
	if err != nil {
		return res, err
	}
	if root == nil {
		logger.Info("[INFO] %s is the SDK plugin itself, nothing to install\n", i.paths.ProjectRoot)
		res.Skipped = true
		return res, nil
	}

	if i.opts.SkipInstall {
		logger.Warn("[WARN] Skipping package manager install of %s\n", i.cfg.Package)
	} else {
		if res.Reinstalled, err = i.installDependency(ctx, root); err != nil {
			return res, err
		}
	}

	vendor, cleanup, err := i.vendorSource(ctx)
	if err != nil {
		return res, err
	}
	defer cleanup()

	if res.FilesCopied, res.Reconciled, err = i.copyBundle(vendor); err != nil {
		return res, err
	}

	if err := i.updateRootManifest(); err != nil {
		return res, err
	}

	logger.Info("[INFO] Updating %s\n", i.cfg.IgnoreFile)
	if res.IgnoreAdded, err = UpdateIgnoreFile(i.fs, i.paths.IgnoreFile, i.cfg.Ignore); err != nil {
		return res, err
	}
	for _, entry := range res.IgnoreAdded {
		logger.Debug("[DEBUG] Added ignore entry %s\n", entry)
	}

	if !i.opts.SkipInstall {
		logger.Info("[INFO] Final dependency install\n")
		if err := i.exec(ctx, i.cfg.PackageManager.Final); err != nil {
			return res, err
		}
	}

	logger.Info("[INFO] Done!\n")
	return res, nil
}

// checkProject returns the root manifest of an eligible project, or nil
// when the project is the plugin itself.
func (i *Installer) checkProject() (*manifest.Manifest, error) {
	root, err := i.store.Read(i.paths.RootManifest)
	if errors.Is(err, manifest.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoManifest, i.paths.ProjectRoot)
	}
	if err != nil {
		return nil, err
	}

	eligibility := manifest.CheckProject(root, i.cfg.Package, i.cfg.ProjectFlag)
	logger.Debug("[DEBUG] Project %s is %s\n", i.paths.ProjectRoot, eligibility)
	switch eligibility {
	case manifest.SelfPackage:
		return nil, nil
	case manifest.NotOptedIn:
		return nil, fmt.Errorf("%w (%q is not true in %s)", ErrNotOptedIn, i.cfg.ProjectFlag, i.paths.RootManifest)
	}
	return root, nil
}

// installDependency installs the plugin, or removes and reinstalls it when
// the project already depends on it. It reports whether it reinstalled.
func (i *Installer) installDependency(ctx context.Context, root *manifest.Manifest) (bool, error) {
	if !root.HasDependency(i.cfg.Package) {
		logger.Info("[INFO] Installing %s\n", i.cfg.Package)
		return false, i.exec(ctx, i.cfg.PackageManager.Install)
	}
	logger.Info("[INFO] Force updating %s\n", i.cfg.Package)
	return true, i.exec(ctx, i.cfg.PackageManager.Reinstall)
}

// exec runs a package manager command line in the project root. Its output
// is only shown when the command fails, or with --debug.
func (i *Installer) exec(ctx context.Context, line string) error {
	command := i.cfg.Command(line)
	if strings.TrimSpace(command) == "" {
		return nil
	}
	if _, err := i.run.Run(ctx, i.paths.ProjectRoot, command); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && exitErr.Output != "" {
			return fmt.Errorf("package manager command failed: %w\n%s", err, strings.TrimRight(exitErr.Output, "\n"))
		}
		return fmt.Errorf("package manager command failed: %w", err)
	}
	return nil
}

// vendorSource returns the directory the UI bundle is copied from, and a
// cleanup func for any temporary download or extraction.
func (i *Installer) vendorSource(ctx context.Context) (string, func(), error) {
	noop := func() {}
	src := i.opts.Bundle

	if src == "" {
		return i.requireDir(i.paths.VendorUI, noop)
	}
	if !bundle.IsURL(src) && !bundle.IsArchive(src) {
		return i.requireDir(bundle.LocateUI(i.fs, src, i.cfg.UISource), noop)
	}

	tmp, err := afero.TempDir(i.fs, "", "bpsdk-bundle-")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() {
		if err := i.fs.RemoveAll(tmp); err != nil {
			logger.Warn("[WARN] Failed to remove %s: %v\n", tmp, err)
		}
	}

	if bundle.IsURL(src) {
		client := i.opts.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		logger.Info("[INFO] Downloading bundle %s\n", src)
		if src, err = bundle.Download(ctx, client, i.fs, src, tmp); err != nil {
			cleanup()
			return "", noop, err
		}
	}

	logger.Info("[INFO] Extracting bundle %s\n", src)
	extracted := filepath.Join(tmp, "extracted")
	if err := bundle.ExtractArchive(i.fs, src, extracted); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to extract %s: %w", src, err)
	}
	return i.requireDir(bundle.LocateUI(i.fs, extracted, i.cfg.UISource), cleanup)
}

func (i *Installer) requireDir(dir string, cleanup func()) (string, func(), error) {
	if ok, _ := afero.DirExists(i.fs, dir); !ok {
		cleanup()
		return "", func() {}, fmt.Errorf("%w at %s", ErrBundleMissing, dir)
	}
	return dir, cleanup, nil
}

// copyBundle copies the vendored UI into the project and reconciles its
// manifest with the one it replaced.
func (i *Installer) copyBundle(vendor string) (int, bool, error) {
	existing, err := i.store.ReadOptional(i.paths.UIManifest)
	if err != nil {
		return 0, false, err
	}

	logger.Info("[INFO] Copying UI bundle from %s to %s\n", vendor, i.paths.UIDir)
	copied, err := bundle.CopyTree(i.fs, vendor, i.paths.UIDir, i.cfg.CopyExclude)
	if err != nil {
		return copied, false, err
	}
	logger.Debug("[DEBUG] Copied %d files\n", copied)

	incoming, err := i.store.Read(i.paths.UIManifest)
	if errors.Is(err, manifest.ErrNotFound) {
		return copied, false, fmt.Errorf("%w: %s", ErrBundleNoManifest, vendor)
	}
	if err != nil {
		return copied, false, err
	}

	if existing == nil {
		logger.Debug("[DEBUG] No previous UI manifest, keeping the vendored one\n")
		return copied, false, nil
	}

	logger.Info("[INFO] Reconciling %s with the previous version\n", i.paths.UIManifest)
	if err := i.store.Write(i.paths.UIManifest, manifest.Reconcile(existing, incoming)); err != nil {
		return copied, false, err
	}
	return copied, true, nil
}

// updateRootManifest adds the UI scripts and files patterns to the root
// manifest. It re-reads the file because the package manager may have
// changed it since the eligibility check.
func (i *Installer) updateRootManifest() error {
	logger.Info("[INFO] Updating %s\n", i.paths.RootManifest)
	root, err := i.store.Read(i.paths.RootManifest)
	if err != nil {
		return err
	}
	if err := manifest.ApplyRootUpdates(root, i.cfg.Scripts, i.cfg.Files); err != nil {
		return fmt.Errorf("failed to update %s: %w", i.paths.RootManifest, err)
	}
	return i.store.Write(i.paths.RootManifest, root)
}

// Usage describes the scripts the installer added, for printing after a run.
func Usage(cfg config.Config) string {
	var b strings.Builder
	b.WriteString("___________________________________________\n\n")
	b.WriteString("How to use?\n\n")
	b.WriteString("The following commands are available: (npm run ___)\n")
	for _, s := range cfg.Scripts {
		if s.Description != "" {
			fmt.Fprintf(&b, " - %s (%s)\n", s.Name, s.Description)
		} else {
			fmt.Fprintf(&b, " - %s\n", s.Name)
		}
	}
	b.WriteString("\n___________________________________________\n")
	return b.String()
}
