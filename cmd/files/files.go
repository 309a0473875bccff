// Package files implements the files command.
package files

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiophile/internal/analysis"
	"github.com/tphakala/audiophile/internal/conf"
)

// Command creates the files command. Without arguments it lists stored
// files; with an ID it prints that file's live predictions.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "files [id]",
		Short: "List stored files or show the live predictions of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return analysis.ListFiles(cmd.Context(), settings, cmd.OutOrStdout())
			}
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid file id %q", args[0])
			}
			return analysis.ShowFile(cmd.Context(), settings, uint(id), cmd.OutOrStdout())
		},
	}
}
