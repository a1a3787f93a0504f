package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bpsdk-setup/internal/config"
	"bpsdk-setup/internal/installer"
	"bpsdk-setup/internal/logger"
	"bpsdk-setup/internal/runner"
)

var installOpts struct {
	dir         string
	bundle      string
	skipInstall bool
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the SDK plugin and copy its UI bundle into the project",
	Args:  cobra.NoArgs,
	RunE:  runInstall,
}

func init() {
	// Registered on both commands, since the root command installs too.
	for _, c := range []*cobra.Command{rootCmd, installCmd} {
		c.Flags().StringVarP(&installOpts.dir, "dir", "d", "", "Project directory (default $INIT_CWD or the working directory)")
		c.Flags().StringVar(&installOpts.bundle, "bundle", "", "Copy the UI from this directory, archive or archive URL instead of the installed package")
		c.Flags().BoolVar(&installOpts.skipInstall, "skip-install", false, "Do not run the package manager")
	}
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	dir, err := config.ProjectRoot(installOpts.dir)
	if err != nil {
		return fmt.Errorf("failed to determine project directory: %w", err)
	}

	path, required := configPath, true
	if path == "" {
		path, required = filepath.Join(dir, config.DefaultFile), false
	}
	cfg, err := config.LoadConfig(fs, path, required)
	if err != nil {
		return err
	}

	paths, err := cfg.ResolvePaths(dir)
	if err != nil {
		return err
	}
	logger.Debug("[DEBUG] Project root %s, UI directory %s\n", paths.ProjectRoot, paths.UIDir)

	opts := installer.Options{SkipInstall: installOpts.skipInstall, Bundle: installOpts.bundle}
	res, err := installer.New(fs, runner.NewShell(), cfg, paths, opts).Run(cmd.Context())
	if err != nil {
		return err
	}
	if !res.Skipped {
		fmt.Fprint(cmd.OutOrStdout(), installer.Usage(cfg))
	}
	return nil
}
