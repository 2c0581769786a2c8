package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/wiggly/internal/demo"
	"github.com/vyrodovalexey/wiggly/internal/lifecycle"
	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
)

func routesCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Build the route table once and print it",
		Long: `Build the route table from the routes directory and print every route in
dispatch order. Exits non-zero when the tree has conflicting routes or
malformed names.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}

			logger := observability.NopLogger()
			if flags.logLevel != "" {
				if logger, err = observability.NewLogger(cfg.LogConfig()); err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
			}

			reg := newRegistry(demo.NewMemoryStore(demo.SeedProducts()), logger, false)
			pipeline := lifecycle.Pipeline{
				RoutesRoot:     cfg.Routes.Dir,
				MiddlewareRoot: cfg.Routes.MiddlewareDir,
				Loader:         newLoader(cfg, reg, logger),
				Extensions:     cfg.Routes.Extensions,
				Logger:         logger,
			}
			snap, err := pipeline.Build(cmd.Context())
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), snap)
		},
	}

	flags.register(cmd)
	return cmd
}

// printRoutes writes one line per route: method, pattern, source file and
// middleware chain.
func printRoutes(out io.Writer, snap *router.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATTERN\tSOURCE\tMIDDLEWARE")
	for _, r := range snap.Routes() {
		chain := strings.Join(r.MiddlewareNames(), " > ")
		if chain == "" {
			chain = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Method, r.Pattern, r.Source, chain)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d routes, fingerprint %s\n", snap.Len(), snap.Fingerprint()[:12])
	return err
}
