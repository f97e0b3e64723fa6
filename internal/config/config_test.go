package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-images-api/internal/config"
	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

// clearEnv blanks every override so tests do not depend on the caller's shell.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		config.EnvPort,
		config.EnvAppEnv,
		config.EnvNodeEnv,
		config.EnvRenderer,
		config.EnvCloudConvertAPIKey,
		config.EnvNATSURL,
	} {
		t.Setenv(key, "")
	}
}

func writeProjectToml(t *testing.T, dir, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "project.toml"), []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	writeProjectToml(t, dir, "")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "pdf", cfg.Upload.FieldName)
	assert.Equal(t, "fitz", cfg.Render.Renderer)
	assert.Equal(t, "png", cfg.Render.Format)
	assert.Equal(t, 150, cfg.Render.DPI)
	assert.Equal(t, runtime.NumCPU(), cfg.Render.Workers)
	assert.Equal(t, 2*time.Second, cfg.CloudConvert.PollInterval())
	assert.Equal(t, 30, cfg.CloudConvert.MaxAttempts)
	assert.Equal(t, "pdf.converted", cfg.NATS.Subject)
	assert.Empty(t, cfg.NATS.URL)
	assert.NotEmpty(t, cfg.Paths.BaseLogsDir)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	writeProjectToml(t, dir, `
[server]
port = 8080
environment = "staging"

[render]
renderer = "ghostscript"
format = "jpeg"
dpi = 200
fallback_to_pdf = true

[cloudconvert]
poll_interval_ms = 500
max_attempts = 4

[paths]
base_logs_dir = "/var/log/pdf"
`)

	t.Setenv(config.EnvPort, "9090")
	t.Setenv(config.EnvNodeEnv, "production")
	t.Setenv(config.EnvCloudConvertAPIKey, "secret")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, "ghostscript", cfg.Render.Renderer)
	assert.True(t, cfg.Render.FallbackToPDF)
	assert.Equal(t, "secret", cfg.CloudConvert.APIKey)
	assert.Equal(t, "/var/log/pdf", cfg.Paths.BaseLogsDir)

	opts := cfg.RenderOptions()
	assert.Equal(t, pdfrender.FormatJPEG, opts.Format)
	assert.Equal(t, 200, opts.DPI)
	assert.Equal(t, 500*time.Millisecond, opts.CloudConvert.PollInterval)
	assert.Equal(t, 4, opts.CloudConvert.MaxAttempts)
}

func TestLoad_AppEnvWinsOverNodeEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	writeProjectToml(t, dir, "")

	t.Setenv(config.EnvAppEnv, "test")
	t.Setenv(config.EnvNodeEnv, "production")
	t.Setenv(config.EnvRenderer, "PassThrough")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Server.Environment)
	assert.Equal(t, "passthrough", cfg.Render.Renderer)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	t.Run("Unknown renderer", func(t *testing.T) {
		dir := t.TempDir()
		writeProjectToml(t, dir, "[render]\nrenderer = \"imagemagick\"\n")

		_, err := config.Load(dir)
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("Port out of range", func(t *testing.T) {
		dir := t.TempDir()
		writeProjectToml(t, dir, "[server]\nport = 70000\n")

		_, err := config.Load(dir)
		require.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("Malformed toml", func(t *testing.T) {
		dir := t.TempDir()
		writeProjectToml(t, dir, "[server\nport = ")

		_, err := config.Load(dir)
		require.Error(t, err)
	})
}
