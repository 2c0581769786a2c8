package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WIGGLY_"

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// envBinding applies one environment variable to the configuration.
type envBinding struct {
	key   string
	apply func(cfg *Config, value string) error
}

var envBindings = []envBinding{
	{"ROUTES_DIR", setString(func(c *Config) *string { return &c.Routes.Dir })},
	{"MIDDLEWARE_DIR", setString(func(c *Config) *string { return &c.Routes.MiddlewareDir })},
	{"EXTENSIONS", func(c *Config, v string) error {
		c.Routes.Extensions = splitList(v)
		return nil
	}},
	{"LOADER", setString(func(c *Config) *string { return &c.Routes.Loader })},
	{"BIND", setString(func(c *Config) *string { return &c.Server.Bind })},
	{"PORT", setInt(func(c *Config) *int { return &c.Server.Port })},
	{"BASE_PATH", setString(func(c *Config) *string { return &c.Server.BasePath })},
	{"TRANSPORT", setString(func(c *Config) *string { return &c.Server.Transport })},
	{"SHUTDOWN_TIMEOUT", setDuration(func(c *Config) *Duration { return &c.Server.ShutdownTimeout })},
	{"WATCH_ENABLED", setBool(func(c *Config) *bool { return &c.Watch.Enabled })},
	{"WATCH_DEBOUNCE", setDuration(func(c *Config) *Duration { return &c.Watch.Debounce })},
	{"WATCH_REBUILD_RATE", setFloat(func(c *Config) *float64 { return &c.Watch.RebuildRate })},
	{"LOG_LEVEL", setString(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", setString(func(c *Config) *string { return &c.Logging.Format })},
	{"LOG_OUTPUT", setString(func(c *Config) *string { return &c.Logging.Output })},
	{"LOG_REQUESTS", setBool(func(c *Config) *bool { return &c.Logging.Requests })},
	{"METRICS_ENABLED", setBool(func(c *Config) *bool { return &c.Metrics.Enabled })},
	{"METRICS_PORT", setInt(func(c *Config) *int { return &c.Metrics.Port })},
	{"TRACING_ENABLED", setBool(func(c *Config) *bool { return &c.Tracing.Enabled })},
	{"TRACING_ENDPOINT", setString(func(c *Config) *string { return &c.Tracing.Endpoint })},
	{"TRACING_SAMPLING_RATE", setFloat(func(c *Config) *float64 { return &c.Tracing.SamplingRate })},
	{"DEMO_STORE", setString(func(c *Config) *string { return &c.Demo.Store })},
	{"REDIS_ADDR", setString(func(c *Config) *string { return &c.Demo.RedisAddr })},
}

// ApplyEnv overrides cfg from WIGGLY_* variables. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, b := range envBindings {
		value, ok := lookup(EnvPrefix + b.key)
		if !ok || value == "" {
			continue
		}
		if err := b.apply(cfg, value); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setFloat(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func setDuration(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		return field(c).UnmarshalText([]byte(v))
	}
}

// setBool accepts "true", "1", "yes" and "on" (case-insensitive) and their
// negations.
func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			*field(c) = true
		case "false", "0", "no", "off":
			*field(c) = false
		default:
			return fmt.Errorf("invalid boolean %q", v)
		}
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
