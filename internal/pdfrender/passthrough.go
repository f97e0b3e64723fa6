package pdfrender

import "context"

// PassthroughConverter is used where no rendering backend is available. It never
// produces images; callers are expected to fall back to returning the PDF itself.
type PassthroughConverter struct{}

// NewPassthroughConverter creates a PassthroughConverter.
func NewPassthroughConverter() *PassthroughConverter {
	return &PassthroughConverter{}
}

// Name implements Converter.
func (c *PassthroughConverter) Name() string { return RendererPassthrough }

// Convert implements Converter and always fails with ErrRenderingUnavailable.
func (c *PassthroughConverter) Convert(_ context.Context, pdf []byte) ([]Page, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyInput
	}

	return nil, ErrRenderingUnavailable
}

// Close implements Converter.
func (c *PassthroughConverter) Close() error { return nil }
