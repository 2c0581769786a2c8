package config

import (
	"time"

	"github.com/vyrodovalexey/wiggly/internal/lifecycle"
	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
	"github.com/vyrodovalexey/wiggly/internal/transport"
	"github.com/vyrodovalexey/wiggly/internal/watcher"
)

// Loader kinds for RoutesConfig.Loader.
const (
	LoaderManifest = "manifest"
	LoaderPath     = "path"
)

// Demo store kinds for DemoConfig.Store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the complete server configuration.
type Config struct {
	Routes  RoutesConfig  `yaml:"routes" toml:"routes" json:"routes"`
	Server  ServerConfig  `yaml:"server" toml:"server" json:"server"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch" json:"watch"`
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" toml:"tracing" json:"tracing"`
	Demo    DemoConfig    `yaml:"demo" toml:"demo" json:"demo"`
}

// RoutesConfig locates the route and middleware trees.
type RoutesConfig struct {
	Dir           string   `yaml:"dir" toml:"dir" json:"dir" validate:"required"`
	MiddlewareDir string   `yaml:"middleware_dir" toml:"middleware_dir" json:"middleware_dir"`
	Extensions    []string `yaml:"extensions" toml:"extensions" json:"extensions" validate:"min=1,dive,extension"`
	Loader        string   `yaml:"loader" toml:"loader" json:"loader" validate:"oneof=manifest path"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Bind              string   `yaml:"bind" toml:"bind" json:"bind" validate:"omitempty,ip"`
	Port              int      `yaml:"port" toml:"port" json:"port" validate:"min=0,max=65535"`
	BasePath          string   `yaml:"base_path" toml:"base_path" json:"base_path" validate:"basepath"`
	Transport         string   `yaml:"transport" toml:"transport" json:"transport" validate:"transport"`
	ReadTimeout       Duration `yaml:"read_timeout" toml:"read_timeout" json:"read_timeout" validate:"min=0"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" toml:"read_header_timeout" json:"read_header_timeout" validate:"min=0"`
	WriteTimeout      Duration `yaml:"write_timeout" toml:"write_timeout" json:"write_timeout" validate:"min=0"`
	IdleTimeout       Duration `yaml:"idle_timeout" toml:"idle_timeout" json:"idle_timeout" validate:"min=0"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout" validate:"min=0"`
}

// WatchConfig configures file watching and rebuild pacing.
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	Debounce Duration `yaml:"debounce" toml:"debounce" json:"debounce" validate:"min=0"`
	// RebuildRate caps rebuilds per second; zero means unlimited.
	RebuildRate float64 `yaml:"rebuild_rate" toml:"rebuild_rate" json:"rebuild_rate" validate:"min=0"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level    string `yaml:"level" toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" toml:"format" json:"format" validate:"oneof=json console"`
	Output   string `yaml:"output" toml:"output" json:"output"`
	Requests bool   `yaml:"requests" toml:"requests" json:"requests"`
}

// MetricsConfig configures the metrics and health server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Bind    string `yaml:"bind" toml:"bind" json:"bind" validate:"omitempty,ip"`
	Port    int    `yaml:"port" toml:"port" json:"port" validate:"min=0,max=65535"`
	Path    string `yaml:"path" toml:"path" json:"path" validate:"startswith=/"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" toml:"enabled" json:"enabled"`
	Endpoint     string  `yaml:"endpoint" toml:"endpoint" json:"endpoint" validate:"required_if=Enabled true"`
	ServiceName  string  `yaml:"service_name" toml:"service_name" json:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate" toml:"sampling_rate" json:"sampling_rate" validate:"gte=0,lte=1"`
}

// DemoConfig configures the bundled demo application.
type DemoConfig struct {
	Store     string `yaml:"store" toml:"store" json:"store" validate:"oneof=memory redis"`
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr" json:"redis_addr" validate:"required_if=Store redis"`
	RedisKey  string `yaml:"redis_key" toml:"redis_key" json:"redis_key"`
}

// Default returns the default configuration.
func Default() *Config {
	server := transport.DefaultConfig()
	return &Config{
		Routes: RoutesConfig{
			Dir:           "./routes",
			MiddlewareDir: "./middleware",
			Extensions:    append([]string(nil), routetree.DefaultExtensions...),
			Loader:        LoaderManifest,
		},
		Server: ServerConfig{
			Port:              server.Port,
			Transport:         string(transport.KindChi),
			ReadTimeout:       Duration(server.ReadTimeout),
			ReadHeaderTimeout: Duration(server.ReadHeaderTimeout),
			WriteTimeout:      Duration(server.WriteTimeout),
			IdleTimeout:       Duration(server.IdleTimeout),
			ShutdownTimeout:   Duration(lifecycle.DefaultShutdownTimeout),
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: Duration(watcher.DefaultDebounce),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName:  "wiggly",
			SamplingRate: 1.0,
		},
		Demo: DemoConfig{
			Store:    StoreMemory,
			RedisKey: "wiggly:products",
		},
	}
}

// TransportConfig returns the transport settings. Bind and Port are
// included for callers that construct a transport directly.
func (c *Config) TransportConfig() transport.Config {
	cfg := transport.DefaultConfig()
	cfg.Bind = c.Server.Bind
	cfg.Port = c.Server.Port
	cfg.ReadTimeout = c.Server.ReadTimeout.Duration()
	cfg.ReadHeaderTimeout = c.Server.ReadHeaderTimeout.Duration()
	cfg.WriteTimeout = c.Server.WriteTimeout.Duration()
	cfg.IdleTimeout = c.Server.IdleTimeout.Duration()
	return cfg
}

// ServeConfig returns the lifecycle serve settings.
func (c *Config) ServeConfig() (lifecycle.ServeConfig, error) {
	kind, err := transport.ParseKind(c.Server.Transport)
	if err != nil {
		return lifecycle.ServeConfig{}, err
	}
	return lifecycle.ServeConfig{
		Bind:      c.Server.Bind,
		Port:      c.Server.Port,
		BasePath:  c.Server.BasePath,
		Transport: kind,
	}, nil
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() observability.LogConfig {
	return observability.LogConfig{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TracerConfig returns the tracer settings.
func (c *Config) TracerConfig() observability.TracerConfig {
	return observability.TracerConfig{
		Enabled:      c.Tracing.Enabled,
		ServiceName:  c.Tracing.ServiceName,
		OTLPEndpoint: c.Tracing.Endpoint,
		SamplingRate: c.Tracing.SamplingRate,
	}
}

// ShutdownTimeout returns the shutdown grace period.
func (c *Config) ShutdownTimeout() time.Duration {
	return c.Server.ShutdownTimeout.Duration()
}
