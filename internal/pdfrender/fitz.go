package pdfrender

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzConverter renders pages in-process with MuPDF. It needs no temporary files.
type FitzConverter struct {
	encoder *pageEncoder
	dpi     float64
}

// NewFitzConverter creates a MuPDF-backed converter.
func NewFitzConverter(opts *Options) *FitzConverter {
	return &FitzConverter{
		encoder: newPageEncoder(opts),
		dpi:     float64(opts.DPI),
	}
}

// Name implements Converter.
func (c *FitzConverter) Name() string { return RendererFitz }

// Convert implements Converter.
func (c *FitzConverter) Convert(ctx context.Context, pdf []byte) ([]Page, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyInput
	}

	doc, openErr := fitz.NewFromMemory(pdf)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", openErr)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount <= 0 {
		return nil, ErrPDFZeroOrNegativePages
	}

	pages := make([]Page, 0, pageCount)

	for index := range pageCount {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("rendering canceled at page %d: %w", index+1, ctxErr)
		}

		img, renderErr := doc.ImageDPI(index, c.dpi)
		if renderErr != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", index+1, renderErr)
		}

		page, encodeErr := c.encoder.encode(index+1, img)
		if encodeErr != nil {
			return nil, encodeErr
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// Close implements Converter. Documents are closed per conversion.
func (c *FitzConverter) Close() error { return nil }
