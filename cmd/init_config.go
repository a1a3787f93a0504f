package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"bpsdk-setup/internal/config"
	"bpsdk-setup/internal/logger"
)

var initConfigOpts struct {
	out   string
	force bool
}

// initConfigCmd writes the default settings so they can be edited.
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exists, err := afero.Exists(fs, initConfigOpts.out)
		if err != nil {
			return err
		}
		if exists && !initConfigOpts.force {
			return fmt.Errorf("%s already exists, use --force to overwrite it", initConfigOpts.out)
		}

		data, err := config.Marshal(config.DefaultConfig())
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := afero.WriteFile(fs, initConfigOpts.out, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", initConfigOpts.out, err)
		}
		logger.Info("[INFO] Wrote %s\n", initConfigOpts.out)
		return nil
	},
}

func init() {
	initConfigCmd.Flags().StringVarP(&initConfigOpts.out, "out", "o", config.DefaultFile, "Output file")
	initConfigCmd.Flags().BoolVar(&initConfigOpts.force, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}
