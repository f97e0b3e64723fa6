// Package pdfrender turns PDF documents into ordered page images.
//
// Every rendering strategy implements Converter and returns pages numbered 1..N in
// ascending order. Strategies are interchangeable; callers pick one with New.
package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRenderingUnavailable is returned by strategies that cannot rasterize pages.
	ErrRenderingUnavailable = errors.New("server-side rendering is unavailable")
	// ErrPDFZeroOrNegativePages is returned when a PDF has an invalid page count.
	ErrPDFZeroOrNegativePages = errors.New("pdf has zero or a negative number of pages")
	// ErrEmptyInput is returned when the PDF content is empty.
	ErrEmptyInput = errors.New("pdf content is empty")
	// ErrUnknownRenderer is returned by New for an unsupported renderer name.
	ErrUnknownRenderer = errors.New("unknown renderer")
	// ErrUnsupportedFormat is returned for an unsupported output image format.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Renderer names accepted by New.
const (
	RendererFitz         = "fitz"
	RendererPDFium       = "pdfium"
	RendererGhostscript  = "ghostscript"
	RendererCloudConvert = "cloudconvert"
	RendererPassthrough  = "passthrough"
)

// Format is the encoding of a rendered page image.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat maps a user supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// MediaType returns the MIME type of the format.
func (format Format) MediaType() string {
	if format == FormatJPEG {
		return "image/jpeg"
	}

	return "image/png"
}

// Extension returns the file extension of the format, without the dot.
func (format Format) Extension() string {
	if format == FormatJPEG {
		return "jpg"
	}

	return "png"
}

// Page is one rendered page of a document.
type Page struct {
	Data   []byte
	Format Format
	Number int
	Width  int
	Height int
	// Blank is set when blank detection is enabled and the page has no content.
	Blank bool
}

// Filename returns the conventional file name of the page, e.g. "page-3.png".
func (page Page) Filename() string {
	return fmt.Sprintf("page-%d.%s", page.Number, page.Format.Extension())
}

// Converter renders a PDF into its page images.
type Converter interface {
	// Name identifies the strategy in logs and responses.
	Name() string
	// Convert renders every page of pdf. Pages are numbered from 1 and ordered.
	Convert(ctx context.Context, pdf []byte) ([]Page, error)
	// Close releases resources held by the strategy.
	Close() error
}
