package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
	"github.com/vyrodovalexey/wiggly/internal/transport"
	"github.com/vyrodovalexey/wiggly/internal/util"
	"github.com/vyrodovalexey/wiggly/internal/watcher"
)

// DefaultShutdownTimeout bounds how long Stop drains in-flight requests.
const DefaultShutdownTimeout = 30 * time.Second

// TransportFactory creates the transport Serve binds to.
type TransportFactory func(kind transport.Kind, cfg transport.Config) (transport.Transport, error)

// ServeConfig selects where and how the snapshot is served.
type ServeConfig struct {
	Bind      string
	Port      int
	BasePath  string
	Transport transport.Kind
}

// publication pairs a snapshot with the generation it was published as.
type publication struct {
	snap *router.Snapshot
	gen  uint64
}

// Manager owns the published snapshot, the transport and the watcher.
// A stopped Manager cannot be restarted.
type Manager struct {
	pipeline        Pipeline
	logger          observability.Logger
	metrics         *observability.Metrics
	tracer          *observability.Tracer
	newTransport    TransportFactory
	serverConfig    transport.Config
	debounce        time.Duration
	watch           bool
	limiter         *rate.Limiter
	shutdownTimeout time.Duration

	state      atomic.Int32
	current    atomic.Pointer[publication]
	generation atomic.Uint64
	basePath   string

	// ctx is cancelled by Stop and aborts any build in progress.
	ctx    context.Context
	cancel context.CancelFunc

	rebuildCh chan string

	mu        sync.Mutex
	transport transport.Transport
	watcher   *watcher.Watcher
	loopDone  chan struct{}
	stopOnce  sync.Once
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer *observability.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// WithExtensions sets the accepted route and middleware file extensions.
func WithExtensions(exts ...string) Option {
	return func(m *Manager) {
		m.pipeline.Extensions = exts
	}
}

// WithTransportFactory replaces the transport constructor.
func WithTransportFactory(factory TransportFactory) Option {
	return func(m *Manager) {
		m.newTransport = factory
	}
}

// WithServerConfig sets the transport timeouts. Bind and Port are taken
// from ServeConfig.
func WithServerConfig(cfg transport.Config) Option {
	return func(m *Manager) {
		m.serverConfig = cfg
	}
}

// WithDebounce sets the watcher debounce window.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) {
		m.debounce = d
	}
}

// WithWatch enables or disables file watching.
func WithWatch(enabled bool) Option {
	return func(m *Manager) {
		m.watch = enabled
	}
}

// WithRebuildLimiter spaces successive rebuilds.
func WithRebuildLimiter(limiter *rate.Limiter) Option {
	return func(m *Manager) {
		m.limiter = limiter
	}
}

// WithShutdownTimeout sets the grace period Stop uses when its context has
// no deadline.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.shutdownTimeout = d
	}
}

// New creates a Manager for the given roots. Nothing is built until Serve.
func New(routesRoot, middlewareRoot string, loader routetree.Loader, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		pipeline: Pipeline{
			RoutesRoot:     routesRoot,
			MiddlewareRoot: middlewareRoot,
			Loader:         loader,
		},
		logger:          observability.NopLogger(),
		tracer:          observability.NoopTracer(),
		serverConfig:    transport.DefaultConfig(),
		debounce:        watcher.DefaultDebounce,
		watch:           true,
		shutdownTimeout: DefaultShutdownTimeout,
		ctx:             ctx,
		cancel:          cancel,
		rebuildCh:       make(chan string, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = observability.NewMetrics("")
	}
	if m.newTransport == nil {
		logger := m.logger
		m.newTransport = func(kind transport.Kind, cfg transport.Config) (transport.Transport, error) {
			return transport.New(kind, cfg, transport.WithLogger(logger))
		}
	}
	m.pipeline.Logger = m.logger
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Snapshot returns the published snapshot, or nil before the first publish.
func (m *Manager) Snapshot() *router.Snapshot {
	if p := m.current.Load(); p != nil {
		return p.snap
	}
	return nil
}

// Generation returns the generation of the published snapshot. The first
// snapshot is generation 1.
func (m *Manager) Generation() uint64 {
	if p := m.current.Load(); p != nil {
		return p.gen
	}
	return 0
}

// Addr returns the transport address once serving.
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transport == nil {
		return ""
	}
	return m.transport.Addr()
}

// Build runs the build pipeline once without publishing anything.
func (m *Manager) Build(ctx context.Context) (*router.Snapshot, error) {
	return m.pipeline.Build(ctx)
}

// Serve performs the initial build, publishes it, starts the transport and
// the watcher, and returns. It may be called once.
//
// Route conflicts and invalid patterns abort startup; any other build
// failure starts serving with an empty table. Transport failures are
// returned as *util.TransportError.
func (m *Manager) Serve(ctx context.Context, cfg ServeConfig) error {
	if !m.state.CompareAndSwap(int32(StateUninitialized), int32(StateBuilding)) {
		return fmt.Errorf("serve called in state %s: %w", m.State(), util.ErrInvalidState)
	}

	basePath, err := normalizeBasePath(cfg.BasePath)
	if err != nil {
		m.fail()
		return err
	}

	snap, err := m.build(m.ctx, observability.BuildTriggerInitial)
	if err != nil {
		if util.IsStructuralBuildError(err) {
			m.logger.Error("initial build failed", observability.Error(err))
			m.fail()
			return err
		}
		if m.ctx.Err() == nil {
			m.logger.Warn("initial build failed, serving no routes", observability.Error(err))
			snap = router.EmptySnapshot()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != StateBuilding || m.ctx.Err() != nil {
		return fmt.Errorf("stopped during startup: %w", util.ErrInvalidState)
	}

	m.basePath = basePath
	m.publish(snap)

	serverCfg := m.serverConfig
	serverCfg.Bind = cfg.Bind
	serverCfg.Port = cfg.Port

	tr, err := m.newTransport(cfg.Transport, serverCfg)
	if err != nil {
		m.fail()
		return err
	}
	if err := tr.Start(ctx, m); err != nil {
		m.logger.Error("failed to start transport", observability.Error(err))
		m.fail()
		return err
	}
	m.transport = tr

	if m.watch {
		m.startWatcher()
	}

	m.loopDone = make(chan struct{})
	go m.loop(m.loopDone)

	m.state.Store(int32(StateServing))
	m.logger.Info("serving routes",
		observability.String("address", tr.Addr()),
		observability.String("transport", string(tr.Kind())),
		observability.String("base_path", basePath),
		observability.Int("routes", snap.Len()),
	)
	return nil
}

// fail moves the manager to Stopped after a failed startup.
func (m *Manager) fail() {
	m.state.Store(int32(StateStopped))
	m.cancel()
}

func (m *Manager) startWatcher() {
	paths := []string{m.pipeline.RoutesRoot}
	if m.pipeline.MiddlewareRoot != "" {
		paths = append(paths, m.pipeline.MiddlewareRoot)
	}

	w, err := watcher.New(paths, m.onBurst,
		watcher.WithDebounceDelay(m.debounce),
		watcher.WithLogger(m.logger),
		watcher.WithErrorCallback(func(err error) {
			m.logger.Warn("watch error", observability.Error(err))
		}),
	)
	if err != nil {
		m.logger.Warn("file watching disabled", observability.Error(util.NewWatchError(m.pipeline.RoutesRoot, err)))
		return
	}
	if err := w.Start(m.ctx); err != nil {
		m.logger.Warn("file watching disabled", observability.Error(err))
		_ = w.Stop()
		return
	}
	m.watcher = w
}

// onBurst receives one debounced burst of file changes.
func (m *Manager) onBurst(events []watcher.Event) {
	for _, e := range events {
		m.metrics.RecordWatchEvent(e.Kind.String())
		m.logger.Debug("route file changed",
			observability.String("kind", e.Kind.String()),
			observability.String("path", e.Path),
		)
	}
	m.requestRebuild(observability.BuildTriggerWatch)
}

// Rebuild schedules a rebuild. Requests made while one is pending are
// absorbed into it.
func (m *Manager) Rebuild() {
	m.requestRebuild(observability.BuildTriggerManual)
}

func (m *Manager) requestRebuild(trigger string) {
	select {
	case m.rebuildCh <- trigger:
	default:
		m.metrics.RecordCoalescedRebuild()
	}
}

// loop runs rebuilds one at a time until Stop.
func (m *Manager) loop(done chan struct{}) {
	defer close(done)
	for {
		var trigger string
		select {
		case <-m.ctx.Done():
			return
		case trigger = <-m.rebuildCh:
		}

		if m.limiter != nil {
			if err := m.limiter.Wait(m.ctx); err != nil {
				return
			}
		}
		m.rebuild(trigger)
	}
}

func (m *Manager) rebuild(trigger string) {
	if !m.state.CompareAndSwap(int32(StateServing), int32(StateRebuilding)) {
		return
	}
	defer m.state.CompareAndSwap(int32(StateRebuilding), int32(StateServing))

	snap, err := m.build(m.ctx, trigger)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		m.logger.Warn("rebuild failed, keeping previous routes",
			observability.String("trigger", trigger),
			observability.Uint64("generation", m.Generation()),
			observability.Error(err),
		)
		return
	}
	if m.ctx.Err() != nil {
		return
	}
	m.publish(snap)
}

// publish makes snap the snapshot new requests dispatch against. Requests
// already running keep the snapshot they started with.
func (m *Manager) publish(snap *router.Snapshot) {
	gen := m.generation.Add(1)
	old := m.current.Swap(&publication{snap: snap, gen: gen})
	m.metrics.RecordSwap(gen, snap.Len())

	fields := []observability.Field{
		observability.Uint64("generation", gen),
		observability.Int("routes", snap.Len()),
	}
	if old != nil {
		fields = append(fields, observability.Int64("previous_in_flight", old.snap.InFlight()))
	}
	m.logger.Info("snapshot published", fields...)
}

// Stop stops accepting requests, drains in-flight requests until ctx
// expires (or the shutdown timeout, if ctx has no deadline), then halts the
// watcher and the rebuild loop. Calls after the first return nil.
func (m *Manager) Stop(ctx context.Context) error {
	var err error
	m.stopOnce.Do(func() {
		err = m.stop(ctx)
	})
	return err
}

func (m *Manager) stop(ctx context.Context) error {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := State(m.state.Swap(int32(StateStopped)))
	m.logger.Info("stopping", observability.String("state", prev.String()))

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.shutdownTimeout)
		defer cancel()
	}

	var errs []error
	if m.transport != nil {
		if err := m.transport.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.watcher != nil {
		if err := m.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.loopDone != nil {
		<-m.loopDone
	}

	m.logger.Info("stopped")
	return errors.Join(errs...)
}

// normalizeBasePath returns "" for no prefix, otherwise a path with a
// leading slash and no trailing slash.
func normalizeBasePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "", nil
	}
	if strings.ContainsAny(p, "?#") {
		return "", fmt.Errorf("base path %q: %w", p, util.ErrInvalidInput)
	}
	p = "/" + strings.Trim(p, "/")
	return p, nil
}

// stripBasePath removes the base path from a request path. It reports
// false for paths outside the base path.
func stripBasePath(base, path string) (string, bool) {
	if base == "" {
		return path, true
	}
	if path == base {
		return "/", true
	}
	if rest, ok := strings.CutPrefix(path, base); ok && strings.HasPrefix(rest, "/") {
		return rest, true
	}
	return "", false
}
