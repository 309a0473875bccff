// Package detect implements the detect command.
package detect

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/audiophile/internal/analysis"
	"github.com/tphakala/audiophile/internal/conf"
)

// Command creates the detect command for a single file.
func Command(settings *conf.Settings) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "detect <keyword> <file>",
		Short: "Detect a keyword in one audio file without storing anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("threshold") {
				settings.Detection.Threshold = threshold
			}
			return analysis.FileAnalysis(cmd.Context(), settings, args[0], args[1], cmd.OutOrStdout())
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", conf.DefaultThreshold, "Keep windows with confidence strictly above this")

	return cmd
}
