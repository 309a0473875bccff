package main

import (
	"fmt"
	"os"

	"github.com/tphakala/audiophile/cmd"
	"github.com/tphakala/audiophile/internal/buildinfo"
	"github.com/tphakala/audiophile/internal/conf"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings, buildinfo.NewContext(version, buildDate))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
