package cmd

import (
	"github.com/spf13/cobra"

	"bpsdk-setup/internal/logger"
	"bpsdk-setup/internal/manifest"
)

var reconcileOpts struct {
	existing string
	incoming string
	out      string
}

// reconcileCmd merges a previous UI manifest into a fresh one without
// touching anything else.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a previous UI package.json into a freshly vendored one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := manifest.NewStore(fs)

		existing, err := store.ReadOptional(reconcileOpts.existing)
		if err != nil {
			return err
		}
		if existing == nil {
			logger.Warn("[WARN] %s not found, keeping %s as is\n", reconcileOpts.existing, reconcileOpts.incoming)
		}
		incoming, err := store.Read(reconcileOpts.incoming)
		if err != nil {
			return err
		}

		out := reconcileOpts.out
		if out == "" {
			out = reconcileOpts.incoming
		}
		if err := store.Write(out, manifest.Reconcile(existing, incoming)); err != nil {
			return err
		}
		logger.Info("[INFO] Wrote %s\n", out)
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileOpts.existing, "existing", "", "Manifest that was in place before the update")
	reconcileCmd.Flags().StringVar(&reconcileOpts.incoming, "incoming", "", "Freshly vendored manifest")
	reconcileCmd.Flags().StringVarP(&reconcileOpts.out, "out", "o", "", "Output file (default overwrites --incoming)")
	_ = reconcileCmd.MarkFlagRequired("existing")
	_ = reconcileCmd.MarkFlagRequired("incoming")
	rootCmd.AddCommand(reconcileCmd)
}
