// Package pdfrender provides PDF-to-image conversion functionality.
package pdfrender

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/book-expert/logger"
)

// Options holds all configurable parameters shared by the conversion strategies.
type Options struct {
	HTTPClient             *http.Client
	Renderer               string
	Format                 Format
	TempDir                string
	CloudConvert           CloudConvertOptions
	DPI                    int
	JPEGQuality            int
	MaxWidth               int
	Workers                int
	BlankFuzzPercent       int
	BlankNonWhiteThreshold float64
	DetectBlank            bool
}

// CloudConvertOptions configures the remote conversion strategy.
type CloudConvertOptions struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxAttempts  int
}

const (
	defaultDPI                    = 150
	defaultJPEGQuality            = 85
	defaultBlankFuzzPercent       = 5
	defaultBlankNonWhiteThreshold = 0.005
	defaultPollInterval           = 2 * time.Second
	defaultPollAttempts           = 30
	defaultCloudConvertURL        = "https://api.cloudconvert.com"
	defaultHTTPTimeout            = 60 * time.Second
)

// applyDefaultOptions fills zero-value fields in Options with sensible defaults.
func applyDefaultOptions(opts *Options) {
	opts.Renderer = defaultStringEmpty(strings.ToLower(opts.Renderer), RendererFitz)
	opts.Format = Format(defaultStringEmpty(string(opts.Format), string(FormatPNG)))
	opts.TempDir = defaultStringEmpty(opts.TempDir, os.TempDir())
	opts.DPI = defaultIntNonPositive(opts.DPI, defaultDPI)
	opts.JPEGQuality = defaultIntNonPositive(opts.JPEGQuality, defaultJPEGQuality)
	opts.Workers = defaultIntNonPositive(opts.Workers, runtime.NumCPU())
	opts.BlankFuzzPercent = defaultIntNonPositive(opts.BlankFuzzPercent, defaultBlankFuzzPercent)
	opts.BlankNonWhiteThreshold = defaultFloatNonPositive(
		opts.BlankNonWhiteThreshold,
		defaultBlankNonWhiteThreshold,
	)
	opts.CloudConvert.BaseURL = strings.TrimRight(
		defaultStringEmpty(opts.CloudConvert.BaseURL, defaultCloudConvertURL),
		"/",
	)
	opts.CloudConvert.MaxAttempts = defaultIntNonPositive(
		opts.CloudConvert.MaxAttempts,
		defaultPollAttempts,
	)

	if opts.CloudConvert.PollInterval <= 0 {
		opts.CloudConvert.PollInterval = defaultPollInterval
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
}

func defaultIntNonPositive(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func defaultFloatNonPositive(v, def float64) float64 {
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

// New builds the Converter named by opts.Renderer.
// The cloudconvert strategy without an API key degrades to passthrough instead of failing.
func New(opts *Options, log *logger.Logger) (Converter, error) {
	applyDefaultOptions(opts)

	format, formatErr := ParseFormat(string(opts.Format))
	if formatErr != nil {
		return nil, formatErr
	}

	opts.Format = format

	switch opts.Renderer {
	case RendererFitz:
		return NewFitzConverter(opts), nil
	case RendererPDFium:
		return NewPDFiumConverter(opts)
	case RendererGhostscript:
		return NewGhostscriptConverter(opts, log), nil
	case RendererCloudConvert:
		if opts.CloudConvert.APIKey == "" {
			log.Warn("No CloudConvert API key configured, falling back to passthrough mode")

			return NewPassthroughConverter(), nil
		}

		return NewCloudConvertConverter(opts, log), nil
	case RendererPassthrough:
		return NewPassthroughConverter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, opts.Renderer)
	}
}
