// Package main is the entry point for the wiggly route server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wiggly",
		Short: "File-system routed HTTP server",
		Long: `wiggly serves HTTP routes declared by a directory tree.

Every handler file under the routes directory becomes a route, bracketed
names become parameters, and _middleware files wrap everything below them.
The route table is rebuilt in the background when the tree changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
		versionCmd(),
	)
	return rootCmd
}
