package pdfrender_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func TestApplyDefaultOptions(t *testing.T) {
	t.Parallel()

	t.Run("Zero values should default correctly", func(t *testing.T) {
		t.Parallel()

		var opts pdfrender.Options
		pdfrender.ApplyDefaultOptionsForTest(&opts)

		assert.Equal(t, pdfrender.RendererFitz, opts.Renderer)
		assert.Equal(t, pdfrender.FormatPNG, opts.Format)
		assert.Equal(t, 150, opts.DPI)
		assert.Equal(t, 85, opts.JPEGQuality)
		assert.Equal(t, runtime.NumCPU(), opts.Workers)
		assert.Equal(t, 5, opts.BlankFuzzPercent)
		assert.InDelta(t, 0.005, opts.BlankNonWhiteThreshold, 1e-9)
		assert.Equal(t, 2*time.Second, opts.CloudConvert.PollInterval)
		assert.Equal(t, 30, opts.CloudConvert.MaxAttempts)
		assert.Equal(t, "https://api.cloudconvert.com", opts.CloudConvert.BaseURL)
		assert.NotNil(t, opts.HTTPClient)
		assert.NotEmpty(t, opts.TempDir)
	})

	t.Run("Custom values should be preserved", func(t *testing.T) {
		t.Parallel()

		opts := pdfrender.Options{
			Renderer: "GhostScript",
			Format:   pdfrender.FormatJPEG,
			DPI:      300,
			Workers:  4,
			CloudConvert: pdfrender.CloudConvertOptions{
				BaseURL:      "http://localhost:9000/",
				PollInterval: time.Millisecond,
				MaxAttempts:  3,
			},
		}
		pdfrender.ApplyDefaultOptionsForTest(&opts)

		assert.Equal(t, pdfrender.RendererGhostscript, opts.Renderer)
		assert.Equal(t, pdfrender.FormatJPEG, opts.Format)
		assert.Equal(t, 300, opts.DPI)
		assert.Equal(t, 4, opts.Workers)
		assert.Equal(t, "http://localhost:9000", opts.CloudConvert.BaseURL)
		assert.Equal(t, time.Millisecond, opts.CloudConvert.PollInterval)
		assert.Equal(t, 3, opts.CloudConvert.MaxAttempts)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	log := newTestLogger(t)

	testCases := []struct {
		name     string
		renderer string
		expected string
		apiKey   string
	}{
		{name: "Default is fitz", renderer: "", expected: pdfrender.RendererFitz},
		{name: "Ghostscript", renderer: "ghostscript", expected: pdfrender.RendererGhostscript},
		{name: "Passthrough", renderer: "passthrough", expected: pdfrender.RendererPassthrough},
		{name: "CloudConvert with key", renderer: "cloudconvert", apiKey: "secret", expected: pdfrender.RendererCloudConvert},
		{name: "CloudConvert without key degrades", renderer: "cloudconvert", expected: pdfrender.RendererPassthrough},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			converter, err := pdfrender.New(&pdfrender.Options{
				Renderer:     testCase.renderer,
				CloudConvert: pdfrender.CloudConvertOptions{APIKey: testCase.apiKey},
			}, log)
			require.NoError(t, err)
			t.Cleanup(func() { _ = converter.Close() })

			assert.Equal(t, testCase.expected, converter.Name())
		})
	}

	t.Run("Unknown renderer", func(t *testing.T) {
		t.Parallel()

		_, err := pdfrender.New(&pdfrender.Options{Renderer: "imagemagick"}, log)
		require.ErrorIs(t, err, pdfrender.ErrUnknownRenderer)
	})

	t.Run("Unsupported format", func(t *testing.T) {
		t.Parallel()

		_, err := pdfrender.New(&pdfrender.Options{Format: "tiff"}, log)
		require.ErrorIs(t, err, pdfrender.ErrUnsupportedFormat)
	})
}

func TestFormat(t *testing.T) {
	t.Parallel()

	format, err := pdfrender.ParseFormat("JPG")
	require.NoError(t, err)
	assert.Equal(t, pdfrender.FormatJPEG, format)
	assert.Equal(t, "image/jpeg", format.MediaType())
	assert.Equal(t, "jpg", format.Extension())

	format, err = pdfrender.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, "image/png", format.MediaType())

	page := pdfrender.Page{Number: 3, Format: pdfrender.FormatPNG}
	assert.Equal(t, "page-3.png", page.Filename())
}

func TestPassthroughConverter(t *testing.T) {
	t.Parallel()

	converter := pdfrender.NewPassthroughConverter()

	pages, err := converter.Convert(context.Background(), []byte("%PDF-1.4"))
	require.ErrorIs(t, err, pdfrender.ErrRenderingUnavailable)
	assert.Empty(t, pages)

	_, err = converter.Convert(context.Background(), nil)
	require.ErrorIs(t, err, pdfrender.ErrEmptyInput)
}
