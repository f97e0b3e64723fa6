package pdfrender_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
	"github.com/book-expert/pdf-to-images-api/internal/pdftest"
)

func TestPDFiumConverter_Convert(t *testing.T) {
	t.Parallel()

	opts := &pdfrender.Options{Renderer: pdfrender.RendererPDFium, DPI: 72, Workers: 1, DetectBlank: true}

	converter, err := pdfrender.New(opts, newTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = converter.Close() })

	assert.Equal(t, pdfrender.RendererPDFium, converter.Name())

	pages, err := converter.Convert(context.Background(), pdftest.Build(2))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	for index, page := range pages {
		assert.Equal(t, index+1, page.Number)
		assert.InDelta(t, 144, page.Width, 1)
		assert.False(t, page.Blank)
		assert.NotEmpty(t, page.Data)
	}

	_, err = converter.Convert(context.Background(), []byte("not a pdf at all"))
	require.Error(t, err)

	_, err = converter.Convert(context.Background(), nil)
	require.ErrorIs(t, err, pdfrender.ErrEmptyInput)
}
