package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/wiggly/internal/util"
)

const yamlConfig = `
routes:
  dir: ./app/routes
  middleware_dir: ./app/middleware
  extensions: [".yaml"]
server:
  port: 3000
  base_path: /api
  transport: gin
  shutdown_timeout: 5s
watch:
  debounce: 100ms
  rebuild_rate: 2
logging:
  level: debug
  format: console
`

const tomlConfig = `
[routes]
dir = "./app/routes"
middleware_dir = "./app/middleware"
extensions = [".toml"]

[server]
port = 3000
base_path = "/api"
transport = "gin"
shutdown_timeout = "5s"

[watch]
debounce = "100ms"
rebuild_rate = 2.0

[logging]
level = "debug"
format = "console"
`

func assertParsed(t *testing.T, cfg *Config) {
	t.Helper()
	assert.Equal(t, "./app/routes", cfg.Routes.Dir)
	assert.Equal(t, "./app/middleware", cfg.Routes.MiddlewareDir)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, "gin", cfg.Server.Transport)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce.Duration())
	assert.Equal(t, 2.0, cfg.Watch.RebuildRate)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	// Unset fields keep their defaults.
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, LoaderManifest, cfg.Routes.Loader)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Duration())
}

func TestParse_YAML(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(yamlConfig), FormatYAML)
	require.NoError(t, err)
	assertParsed(t, cfg)
	assert.Equal(t, []string{".yaml"}, cfg.Routes.Extensions)
}

func TestParse_TOML(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(tomlConfig), FormatTOML)
	require.NoError(t, err)
	assertParsed(t, cfg)
	assert.Equal(t, []string{".toml"}, cfg.Routes.Extensions)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("routes: [unclosed"), FormatYAML)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)

	_, err = Parse([]byte("[routes\n"), FormatTOML)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)

	_, err = Parse([]byte("watch:\n  debounce: soon\n"), FormatYAML)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatTOML, FormatFromPath("wiggly.toml"))
	assert.Equal(t, FormatTOML, FormatFromPath("WIGGLY.TOML"))
	assert.Equal(t, FormatYAML, FormatFromPath("wiggly.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("wiggly"))
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "wiggly.yaml")
	tomlPath := filepath.Join(dir, "wiggly.toml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0o644))
	require.NoError(t, os.WriteFile(tomlPath, []byte(tomlConfig), 0o644))

	cfg, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assertParsed(t, cfg)

	cfg, err = LoadFile(tomlPath)
	require.NoError(t, err)
	assertParsed(t, cfg)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestLoadFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(yamlConfig), FormatYAML)
	require.NoError(t, err)
	assertParsed(t, cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiggly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))

	t.Setenv("WIGGLY_PORT", "4000")
	t.Setenv("WIGGLY_TRANSPORT", "chi")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "chi", cfg.Server.Transport)
	assert.Equal(t, "/api", cfg.Server.BasePath)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wiggly.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  transport: zmq\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, util.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "server.transport")
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("WIGGLY_TEST_DIR", "/srv/routes")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "set", input: "dir: ${WIGGLY_TEST_DIR}", want: "dir: /srv/routes"},
		{name: "default unused", input: "dir: ${WIGGLY_TEST_DIR:-./routes}", want: "dir: /srv/routes"},
		{name: "default", input: "dir: ${WIGGLY_TEST_UNSET:-./routes}", want: "dir: ./routes"},
		{name: "unset", input: "dir: ${WIGGLY_TEST_UNSET}", want: "dir: "},
		{name: "escaped", input: "price: $$5", want: "price: $5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, substituteEnvVars(tt.input))
		})
	}
}

func TestParse_SubstitutesEnv(t *testing.T) {
	t.Setenv("WIGGLY_TEST_PORT", "7070")

	cfg, err := Parse([]byte("server:\n  port: ${WIGGLY_TEST_PORT}\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}
