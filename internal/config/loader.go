package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// FormatFromPath picks the format from a file extension. Anything other
// than .toml is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads, overrides and validates a configuration file. An empty path
// starts from Default.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
	} else {
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile parses a configuration file on top of Default without
// applying environment overrides or validation.
func LoadFile(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s: %w", path, util.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data, FormatFromPath(absPath))
}

// LoadFromReader parses configuration from r on top of Default.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, format)
}

// Parse substitutes environment references in data and decodes it on top
// of Default.
func Parse(data []byte, format Format) (*Config, error) {
	content := substituteEnvVars(string(data))

	cfg := Default()
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(content, cfg); err != nil {
			return nil, util.NewConfigErrorWithCause("", "failed to parse TOML: "+err.Error(), err)
		}
	default:
		if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
			return nil, util.NewConfigErrorWithCause("", "failed to parse YAML: "+err.Error(), err)
		}
	}
	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. "$$" escapes a literal dollar sign.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}
