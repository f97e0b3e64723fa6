// Package config loads the service configuration from project.toml, .env files and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/book-expert/configurator"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

// ErrInvalidConfig is returned when the merged configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables that override project.toml.
const (
	EnvPort               = "PORT"
	EnvAppEnv             = "APP_ENV"
	EnvNodeEnv            = "NODE_ENV"
	EnvRenderer           = "PDF_RENDERER"
	EnvCloudConvertAPIKey = "CLOUDCONVERT_API_KEY"
	EnvNATSURL            = "NATS_URL"
)

const (
	projectFileName             = "project.toml"
	defaultPort                 = 3000
	defaultEnvironment          = "development"
	defaultMaxUploadBytes       = 10 << 20
	defaultFieldName            = "pdf"
	defaultRenderer             = "fitz"
	defaultDPI                  = 150
	defaultFormat               = "png"
	defaultJPEGQuality          = 85
	defaultRenderTimeoutSeconds = 120
	defaultReadTimeoutSeconds   = 30
	defaultWriteTimeoutSeconds  = 180
	defaultShutdownSeconds      = 10
	defaultPollIntervalMillis   = 2000
	defaultPollAttempts         = 30
	defaultBlankFuzzPercent     = 5
	defaultBlankThreshold       = 0.005
	defaultNATSSubject          = "pdf.converted"
	defaultCloudConvertURL      = "https://api.cloudconvert.com"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Environment            string   `toml:"environment"              validate:"required"`
	CORSOrigins            []string `toml:"cors_origins"`
	Port                   int      `toml:"port"                     validate:"min=1,max=65535"`
	ReadTimeoutSeconds     int      `toml:"read_timeout_seconds"     validate:"min=1"`
	WriteTimeoutSeconds    int      `toml:"write_timeout_seconds"    validate:"min=1"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds" validate:"min=1"`
	RateLimitPerMinute     int      `toml:"rate_limit_per_minute"    validate:"min=0"`
}

// UploadConfig bounds what the convert endpoint accepts.
type UploadConfig struct {
	FieldName string `toml:"field_name" validate:"required"`
	MaxBytes  int64  `toml:"max_bytes"  validate:"min=1"`
}

// RenderConfig selects and tunes the conversion strategy.
type RenderConfig struct {
	Renderer       string `toml:"renderer"        validate:"oneof=fitz pdfium ghostscript cloudconvert passthrough"`
	Format         string `toml:"format"          validate:"oneof=png jpeg jpg"`
	TempDir        string `toml:"temp_dir"`
	DPI            int    `toml:"dpi"             validate:"min=1,max=1200"`
	JPEGQuality    int    `toml:"jpeg_quality"    validate:"min=1,max=100"`
	MaxWidth       int    `toml:"max_width"       validate:"min=0"`
	Workers        int    `toml:"workers"         validate:"min=1"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"min=1"`
	FallbackToPDF  bool   `toml:"fallback_to_pdf"`
	DetectBlank    bool   `toml:"detect_blank"`
}

// CloudConvertConfig configures the remote conversion service.
type CloudConvertConfig struct {
	APIKey             string `toml:"api_key"`
	BaseURL            string `toml:"base_url"              validate:"required,url"`
	PollIntervalMillis int    `toml:"poll_interval_ms"      validate:"min=1"`
	MaxAttempts        int    `toml:"max_attempts"          validate:"min=1"`
}

// BlankDetectionConfig mirrors the detect-blank thresholds.
type BlankDetectionConfig struct {
	FuzzPercent       int     `toml:"fast_fuzz_percent"        validate:"min=0,max=100"`
	NonWhiteThreshold float64 `toml:"fast_non_white_threshold" validate:"gte=0,lte=1"`
}

// NATSConfig enables conversion notifications when URL is set.
type NATSConfig struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject" validate:"required"`
}

// PathsConfig holds common path configurations.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config represents the structure of the project.toml file.
type Config struct {
	Paths          PathsConfig          `toml:"paths"`
	ProjectRoot    string               `toml:"-"`
	NATS           NATSConfig           `toml:"nats"`
	CloudConvert   CloudConvertConfig   `toml:"cloudconvert"`
	Upload         UploadConfig         `toml:"upload"`
	Render         RenderConfig         `toml:"render"`
	Server         ServerConfig         `toml:"server"`
	BlankDetection BlankDetectionConfig `toml:"blank_detection"`
}

// Load locates project.toml from startDir upwards, loads .env files and applies
// environment overrides. A missing project.toml is not an error.
func Load(startDir string) (*Config, error) {
	var cfg Config

	projectRoot, configPath, findErr := configurator.FindProjectRoot(startDir)
	if findErr != nil {
		absDir, absErr := filepath.Abs(startDir)
		if absErr != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", startDir, absErr)
		}

		projectRoot = absDir
		configPath = filepath.Join(absDir, projectFileName)
	}

	decodeErr := decodeFile(configPath, &cfg)
	if decodeErr != nil {
		return nil, decodeErr
	}

	cfg.ProjectRoot = projectRoot

	// Missing .env files are ignored.
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	validateErr := Validate(&cfg)
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// decodeFile reads and parses a project.toml file. A file that does not exist leaves cfg
// untouched.
func decodeFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}

	_, decodeErr := toml.DecodeFile(path, cfg)
	if decodeErr != nil {
		if errors.Is(decodeErr, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to decode config file %s: %w", path, decodeErr)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if port, ok := lookupInt(EnvPort); ok {
		cfg.Server.Port = port
	}

	if env := lookup(EnvAppEnv); env != "" {
		cfg.Server.Environment = env
	} else if env := lookup(EnvNodeEnv); env != "" {
		cfg.Server.Environment = env
	}

	if renderer := lookup(EnvRenderer); renderer != "" {
		cfg.Render.Renderer = renderer
	}

	if apiKey := lookup(EnvCloudConvertAPIKey); apiKey != "" {
		cfg.CloudConvert.APIKey = apiKey
	}

	if natsURL := lookup(EnvNATSURL); natsURL != "" {
		cfg.NATS.URL = natsURL
	}
}

func applyDefaults(cfg *Config) {
	cfg.Server.Port = defaultIntNonPositive(cfg.Server.Port, defaultPort)
	cfg.Server.Environment = defaultStringEmpty(cfg.Server.Environment, defaultEnvironment)
	cfg.Server.ReadTimeoutSeconds = defaultIntNonPositive(cfg.Server.ReadTimeoutSeconds, defaultReadTimeoutSeconds)
	cfg.Server.WriteTimeoutSeconds = defaultIntNonPositive(cfg.Server.WriteTimeoutSeconds, defaultWriteTimeoutSeconds)
	cfg.Server.ShutdownTimeoutSeconds = defaultIntNonPositive(cfg.Server.ShutdownTimeoutSeconds, defaultShutdownSeconds)

	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = defaultMaxUploadBytes
	}

	cfg.Upload.FieldName = defaultStringEmpty(cfg.Upload.FieldName, defaultFieldName)

	cfg.Render.Renderer = strings.ToLower(defaultStringEmpty(cfg.Render.Renderer, defaultRenderer))
	cfg.Render.Format = strings.ToLower(defaultStringEmpty(cfg.Render.Format, defaultFormat))
	cfg.Render.DPI = defaultIntNonPositive(cfg.Render.DPI, defaultDPI)
	cfg.Render.JPEGQuality = defaultIntNonPositive(cfg.Render.JPEGQuality, defaultJPEGQuality)
	cfg.Render.Workers = defaultIntNonPositive(cfg.Render.Workers, runtime.NumCPU())
	cfg.Render.TimeoutSeconds = defaultIntNonPositive(cfg.Render.TimeoutSeconds, defaultRenderTimeoutSeconds)

	cfg.CloudConvert.BaseURL = defaultStringEmpty(cfg.CloudConvert.BaseURL, defaultCloudConvertURL)
	cfg.CloudConvert.PollIntervalMillis = defaultIntNonPositive(
		cfg.CloudConvert.PollIntervalMillis,
		defaultPollIntervalMillis,
	)
	cfg.CloudConvert.MaxAttempts = defaultIntNonPositive(cfg.CloudConvert.MaxAttempts, defaultPollAttempts)

	cfg.BlankDetection.FuzzPercent = defaultIntNonPositive(cfg.BlankDetection.FuzzPercent, defaultBlankFuzzPercent)
	if cfg.BlankDetection.NonWhiteThreshold <= 0 {
		cfg.BlankDetection.NonWhiteThreshold = defaultBlankThreshold
	}

	cfg.NATS.Subject = defaultStringEmpty(cfg.NATS.Subject, defaultNATSSubject)

	if cfg.Paths.BaseLogsDir == "" {
		cfg.Paths.BaseLogsDir = filepath.Join(cfg.ProjectRoot, "logs", "pdf_to_images")
	}
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	validateErr := validator.New().Struct(cfg)
	if validateErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, validateErr)
	}

	return nil
}

// RenderOptions translates the render related sections into converter options.
func (c *Config) RenderOptions() *pdfrender.Options {
	return &pdfrender.Options{
		Renderer:               c.Render.Renderer,
		Format:                 pdfrender.Format(c.Render.Format),
		TempDir:                c.Render.TempDir,
		DPI:                    c.Render.DPI,
		JPEGQuality:            c.Render.JPEGQuality,
		MaxWidth:               c.Render.MaxWidth,
		Workers:                c.Render.Workers,
		BlankFuzzPercent:       c.BlankDetection.FuzzPercent,
		BlankNonWhiteThreshold: c.BlankDetection.NonWhiteThreshold,
		DetectBlank:            c.Render.DetectBlank,
		CloudConvert: pdfrender.CloudConvertOptions{
			APIKey:       c.CloudConvert.APIKey,
			BaseURL:      c.CloudConvert.BaseURL,
			PollInterval: c.CloudConvert.PollInterval(),
			MaxAttempts:  c.CloudConvert.MaxAttempts,
		},
	}
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// ReadTimeout returns the server read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns how long in-flight requests get on shutdown.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// Timeout returns the per-conversion deadline.
func (r RenderConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// PollInterval returns the delay between job status checks.
func (c CloudConvertConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func lookupInt(key string) (int, bool) {
	value := lookup(key)
	if value == "" {
		return 0, false
	}

	parsed, parseErr := strconv.Atoi(value)
	if parseErr != nil {
		return 0, false
	}

	return parsed, true
}

func defaultIntNonPositive(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func defaultStringEmpty(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
