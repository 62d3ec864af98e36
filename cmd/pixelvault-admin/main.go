package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelvault/admin/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pixelvault-admin",
		Short: "Admin console for the PixelVault image host",
		Long: `pixelvault-admin serves the PixelVault administration console.

It sits between the browser and the PixelVault API:

  • Proxies login, registration, and logout, translating the
    backend's token into an httpOnly session cookie
  • Guards console routes and pushes auth-state changes to open
    pages over a live channel
  • Stages image uploads before they are committed`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var ae *errors.AdminError
		if stderrors.As(err, &ae) {
			fmt.Fprintln(os.Stderr, ae.Format())
		} else {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}
