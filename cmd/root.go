// Package cmd builds the command line interface.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/audiophile/cmd/configcmd"
	"github.com/tphakala/audiophile/cmd/detect"
	"github.com/tphakala/audiophile/cmd/files"
	"github.com/tphakala/audiophile/cmd/scan"
	"github.com/tphakala/audiophile/cmd/serve"
	"github.com/tphakala/audiophile/internal/buildinfo"
	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/logger"
)

// sentryFlushTimeout bounds how long exit waits for queued error reports.
const sentryFlushTimeout = 2 * time.Second

// globalFlags are applied on top of the loaded configuration.
type globalFlags struct {
	configFile string
	debug      bool
	mediaDir   string
	database   string
}

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "audiophile",
		Short:         "Keyword detection over audio files with drift-gated ingestion",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, flags)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		scan.Command(settings),
		detect.Command(settings),
		files.Command(settings),
		configcmd.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(cmd, settings, flags, build)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		errors.FlushTelemetry(sentryFlushTimeout)
	}

	return rootCmd
}

// initialize loads configuration, applies flag overrides and sets up
// logging and error telemetry.
func initialize(cmd *cobra.Command, settings *conf.Settings, flags *globalFlags, build *buildinfo.Context) error {
	loaded, err := conf.LoadFile(flags.configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	pf := cmd.Flags()
	if pf.Changed("debug") {
		settings.Debug = flags.debug
	}
	if pf.Changed("media") {
		settings.Media.Dir = flags.mediaDir
	}
	if pf.Changed("database") {
		settings.Output.SQLite.Enabled = true
		settings.Output.MySQL.Enabled = false
		settings.Output.Postgres.Enabled = false
		settings.Output.SQLite.Path = flags.database
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if settings.Sentry.Enabled {
		if err := errors.InitSentry(settings.Sentry.DSN, settings.Sentry.Environment, build.Release()); err != nil {
			// telemetry is optional
			central.Module("main").Warn("sentry disabled", logger.Error(err))
		}
	}

	central.Module("main").Debug("configuration loaded",
		logger.String("version", build.GetVersion()),
		logger.String("media", settings.Media.Dir),
		logger.String("command", cmd.Name()))
	return nil
}

func setupFlags(rootCmd *cobra.Command, flags *globalFlags) {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/audiophile, /etc/audiophile)")
	pf.BoolVarP(&flags.debug, "debug", "d", false, "Enable debug output")
	pf.StringVar(&flags.mediaDir, "media", "", "Media directory, overrides media.dir")
	pf.StringVar(&flags.database, "database", "", "SQLite database path, overrides output settings")
}
