// Package configcmd implements the config command.
package configcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiophile/internal/conf"
)

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveYAML(args[0], settings); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", args[0])
			return err
		},
	})

	return cmd
}
