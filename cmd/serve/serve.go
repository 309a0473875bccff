// Package serve implements the serve command.
package serve

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiophile/internal/analysis"
	"github.com/tphakala/audiophile/internal/conf"
)

// Command creates the serve command: scheduled ingestion plus the HTTP API.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		interval string
		port     string
		noAPI    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled ingestion passes and the HTTP API",
		Long:  "Scan the media directory on every interval, persist new prediction generations and serve them over HTTP until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("interval") {
				d, err := parseInterval(interval)
				if err != nil {
					return err
				}
				settings.Ingest.Interval = d
			}
			if cmd.Flags().Changed("port") {
				settings.WebServer.Port = port
			}
			if noAPI {
				settings.WebServer.Enabled = false
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return analysis.Serve(ctx, settings)
		},
	}

	cmd.Flags().StringVar(&interval, "interval", "", "Time between passes, e.g. 30s")
	cmd.Flags().StringVarP(&port, "port", "p", "", "HTTP listen port")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Disable the HTTP API")

	return cmd
}
