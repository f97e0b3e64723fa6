package pdfrender

import (
	"context"
	"fmt"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

const pdfiumInstanceTimeout = 30 * time.Second

// PDFiumConverter renders pages with PDFium compiled to WebAssembly (no CGo).
// Each conversion borrows one instance from a pool sized by Options.Workers.
type PDFiumConverter struct {
	pool    pdfium.Pool
	encoder *pageEncoder
	dpi     int
}

// NewPDFiumConverter initializes the WebAssembly pool.
func NewPDFiumConverter(opts *Options) (*PDFiumConverter, error) {
	pool, initErr := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  opts.Workers,
		MaxTotal: opts.Workers,
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", initErr)
	}

	return &PDFiumConverter{
		pool:    pool,
		encoder: newPageEncoder(opts),
		dpi:     opts.DPI,
	}, nil
}

// Name implements Converter.
func (c *PDFiumConverter) Name() string { return RendererPDFium }

// Convert implements Converter.
func (c *PDFiumConverter) Convert(ctx context.Context, pdf []byte) ([]Page, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyInput
	}

	instance, instanceErr := c.pool.GetInstance(pdfiumInstanceTimeout)
	if instanceErr != nil {
		return nil, fmt.Errorf("failed to get PDFium instance: %w", instanceErr)
	}
	defer func() { _ = instance.Close() }()

	doc, openErr := instance.OpenDocument(&requests.OpenDocument{File: &pdf})
	if openErr != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", openErr)
	}
	defer func() {
		_, _ = instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
	}()

	countResp, countErr := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if countErr != nil {
		return nil, fmt.Errorf("unable to get page count: %w", countErr)
	}

	if countResp.PageCount <= 0 {
		return nil, ErrPDFZeroOrNegativePages
	}

	pages := make([]Page, 0, countResp.PageCount)

	for index := range countResp.PageCount {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("rendering canceled at page %d: %w", index+1, ctxErr)
		}

		page, renderErr := c.renderPage(instance, doc.Document, index)
		if renderErr != nil {
			return nil, renderErr
		}

		pages = append(pages, page)
	}

	return pages, nil
}

func (c *PDFiumConverter) renderPage(
	instance pdfium.Pdfium,
	document references.FPDF_DOCUMENT,
	index int,
) (Page, error) {
	rendered, renderErr := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: c.dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: document,
				Index:    index,
			},
		},
	})
	if renderErr != nil {
		return Page{}, fmt.Errorf("unable to render page %d: %w", index+1, renderErr)
	}
	defer rendered.Cleanup()

	return c.encoder.encode(index+1, rendered.Result.Image)
}

// Close implements Converter and shuts the WebAssembly pool down.
func (c *PDFiumConverter) Close() error {
	if c.pool == nil {
		return nil
	}

	closeErr := c.pool.Close()
	c.pool = nil

	if closeErr != nil {
		return fmt.Errorf("failed to close PDFium pool: %w", closeErr)
	}

	return nil
}
