package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/wiggly/internal/config"
	"github.com/vyrodovalexey/wiggly/internal/demo"
	"github.com/vyrodovalexey/wiggly/internal/health"
	"github.com/vyrodovalexey/wiggly/internal/lifecycle"
	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
)

// application holds every long-lived component of a running server.
type application struct {
	config   *config.Config
	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	redis    *redis.Client
	store    demo.ProductStore
	manager  *lifecycle.Manager
	checker  *health.Checker
	admin    *adminServer
	registry *routetree.Registry
}

// initApplication wires the components described by cfg. Nothing is
// listening when it returns.
func initApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: observability.NewMetrics("wiggly"),
	}

	tracer, err := observability.NewTracer(cfg.TracerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	app.tracer = tracer

	if err := app.initStore(ctx); err != nil {
		_ = app.close(ctx)
		return nil, err
	}

	app.registry = newRegistry(app.store, logger, cfg.Logging.Requests)
	app.manager = lifecycle.New(cfg.Routes.Dir, cfg.Routes.MiddlewareDir, newLoader(cfg, app.registry, logger),
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(app.metrics),
		lifecycle.WithTracer(tracer),
		lifecycle.WithExtensions(cfg.Routes.Extensions...),
		lifecycle.WithServerConfig(cfg.TransportConfig()),
		lifecycle.WithWatch(cfg.Watch.Enabled),
		lifecycle.WithDebounce(cfg.Watch.Debounce.Duration()),
		lifecycle.WithRebuildLimiter(newRebuildLimiter(cfg.Watch.RebuildRate)),
		lifecycle.WithShutdownTimeout(cfg.ShutdownTimeout()),
	)

	app.checker = health.NewChecker(version,
		health.WithMetrics(health.NewMetrics("wiggly", app.metrics.Registry())),
	)
	app.checker.RegisterCheck("routes", health.LifecycleCheck(app.manager))
	if app.redis != nil {
		app.checker.RegisterCheck("redis", health.RedisCheck(app.redis, false))
	}

	if cfg.Metrics.Enabled {
		app.admin = newAdminServer(cfg.Metrics, app.metrics, app.checker, logger)
	}
	return app, nil
}

// initStore opens the product store backing the demo handlers.
func (a *application) initStore(ctx context.Context) error {
	if a.config.Demo.Store != config.StoreRedis {
		a.store = demo.NewMemoryStore(demo.SeedProducts())
		return nil
	}

	a.redis = redis.NewClient(&redis.Options{Addr: a.config.Demo.RedisAddr})
	store := demo.NewRedisStore(a.redis, a.config.Demo.RedisKey)
	if err := store.Seed(ctx, demo.SeedProducts()); err != nil {
		return fmt.Errorf("failed to seed redis store at %s: %w", a.config.Demo.RedisAddr, err)
	}
	a.logger.Info("using redis product store",
		observability.String("addr", a.config.Demo.RedisAddr),
		observability.String("key", a.config.Demo.RedisKey),
	)
	a.store = store
	return nil
}

// close releases resources that outlive the manager.
func (a *application) close(ctx context.Context) error {
	var errs []error
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// newRegistry exposes the demo handlers by name and by fixture path.
func newRegistry(store demo.ProductStore, logger observability.Logger, logRequests bool) *routetree.Registry {
	reg := routetree.NewRegistry()
	app := demo.NewApp(store, demo.WithLogger(logger), demo.WithRequestLogging(logRequests))
	app.Register(reg)
	app.Bind(reg)
	return reg
}

func newLoader(cfg *config.Config, reg *routetree.Registry, logger observability.Logger) routetree.Loader {
	if cfg.Routes.Loader == config.LoaderPath {
		return routetree.NewPathLoader(reg)
	}
	return routetree.NewManifestLoader(reg, logger)
}

// newRebuildLimiter returns nil, meaning unlimited, for a zero rate.
func newRebuildLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
