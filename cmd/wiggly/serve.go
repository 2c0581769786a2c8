package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/wiggly/internal/lifecycle"
	"github.com/vyrodovalexey/wiggly/internal/observability"
)

func serveCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the routes directory",
		Long: `Build the route table, start the HTTP transport and keep the table in
sync with the routes directory until SIGINT or SIGTERM. SIGHUP forces a
rebuild.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}

			logger, err := observability.NewLogger(cfg.LogConfig())
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			app, err := initApplication(ctx, cfg, logger)
			if err != nil {
				logger.Error("failed to initialize", observability.Error(err))
				return err
			}
			return runServe(ctx, app, hup)
		},
	}

	flags.register(cmd)
	return cmd
}

// runServe starts the route server and the admin server, then blocks until
// ctx is done or either of them fails. Every value received on reload
// triggers a rebuild.
func runServe(ctx context.Context, app *application, reload <-chan os.Signal) error {
	serveCfg, err := app.config.ServeConfig()
	if err != nil {
		return errors.Join(err, app.close(context.Background()))
	}

	if err := app.manager.Serve(ctx, serveCfg); err != nil {
		app.logger.Error("failed to start", observability.Error(err))
		return errors.Join(err, app.close(context.Background()))
	}
	app.logger.Info("wiggly started",
		observability.String("version", version),
		observability.String("address", app.manager.Addr()),
		observability.String("routes", app.config.Routes.Dir),
	)

	g, gctx := errgroup.WithContext(ctx)
	if app.admin != nil {
		if err := app.admin.listen(gctx); err != nil {
			return errors.Join(err, app.shutdown())
		}
		g.Go(app.admin.serve)
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return app.shutdown()
			case sig := <-reload:
				app.logger.Info("rebuild requested", observability.String("signal", sig.String()))
				app.manager.Rebuild()
			}
		}
	})

	return g.Wait()
}

// shutdown stops every component within the configured grace period.
func (a *application) shutdown() error {
	a.logger.Info("shutting down")

	timeout := a.config.ShutdownTimeout()
	if timeout <= 0 {
		timeout = lifecycle.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := a.manager.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("route server: %w", err))
	}
	if a.admin != nil {
		if err := a.admin.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin server: %w", err))
		}
	}
	if err := a.close(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown incomplete", observability.Error(err))
		return err
	}
	a.logger.Info("shutdown complete")
	return nil
}
