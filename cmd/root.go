package cmd

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"bpsdk-setup/internal/logger"
)

// debug enables debug logging, toggled with the --debug flag.
var debug bool

// configPath is the YAML config file given with --config. When empty,
// .bpsdk.yaml in the project root is used if it exists.
var configPath string

// fs is the filesystem every command works on.
var fs = afero.NewOsFs()

// rootCmd is the base command. Run without a subcommand it installs, so the
// tool can be wired directly as an npm script.
var rootCmd = &cobra.Command{
	Use:   "bpsdk-setup",
	Short: "Install or update the BetterPortal UI SDK in a BSB plugin project",

	// Initialize the logger before any subcommand runs.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug)
	},
	RunE:          runInstall,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default <project>/.bpsdk.yaml)")
}

// Execute runs the CLI. Any error is printed and ends the process with
// status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("[ERROR] %v\n", err)
		os.Exit(1)
	}
}
