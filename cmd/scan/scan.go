// Package scan implements the scan command.
package scan

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiophile/internal/analysis"
	"github.com/tphakala/audiophile/internal/conf"
)

// Command creates the scan command: a single ingestion pass.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		workers   int
		recursive bool
		policy    string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one ingestion pass over the media directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				settings.Ingest.Workers = max(workers, 1)
			}
			if cmd.Flags().Changed("recursive") {
				settings.Media.Recursive = recursive
			}
			if cmd.Flags().Changed("policy") {
				if policy != conf.DriftPolicyObserve && policy != conf.DriftPolicyQuarantine {
					return fmt.Errorf("policy must be %s or %s, got %q", conf.DriftPolicyObserve, conf.DriftPolicyQuarantine, policy)
				}
				settings.Drift.Policy = policy
			}
			return analysis.DirectoryAnalysis(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Files processed concurrently")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Scan subdirectories")
	cmd.Flags().StringVar(&policy, "policy", "", "Drift policy: observe or quarantine")

	return cmd
}
