package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/wiggly/internal/config"
)

// cliFlags holds command line overrides shared by serve and routes.
type cliFlags struct {
	configPath    string
	routesDir     string
	middlewareDir string
	basePath      string
	transport     string
	logLevel      string
	port          int
}

func (f *cliFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"),
		"Path to a YAML or TOML configuration file")
	fs.StringVar(&f.routesDir, "routes", "", "Routes directory")
	fs.StringVar(&f.middlewareDir, "middleware", "", "Global middleware directory")
	fs.StringVar(&f.basePath, "base-path", "", "Path prefix every route is served under")
	fs.StringVar(&f.transport, "transport", "", "HTTP transport (chi, gin)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.IntVarP(&f.port, "port", "p", 0, "Listen port")
}

// loadConfig layers the configuration: defaults, then the file, then
// WIGGLY_* variables, then flags the user set explicitly.
func loadConfig(cmd *cobra.Command, f *cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("routes") {
		cfg.Routes.Dir = f.routesDir
	}
	if fs.Changed("middleware") {
		cfg.Routes.MiddlewareDir = f.middlewareDir
	}
	if fs.Changed("base-path") {
		cfg.Server.BasePath = f.basePath
	}
	if fs.Changed("transport") {
		cfg.Server.Transport = f.transport
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("port") {
		cfg.Server.Port = f.port
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
