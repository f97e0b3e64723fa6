package pdfrender_test

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
	"github.com/book-expert/pdf-to-images-api/internal/pdftest"
)

func newFitzConverter(opts *pdfrender.Options) *pdfrender.FitzConverter {
	pdfrender.ApplyDefaultOptionsForTest(opts)

	return pdfrender.NewFitzConverter(opts)
}

func TestFitzConverter_Convert(t *testing.T) {
	t.Parallel()

	converter := newFitzConverter(&pdfrender.Options{DPI: 72, DetectBlank: true})

	pages, err := converter.Convert(context.Background(), pdftest.Build(3))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for index, page := range pages {
		assert.Equal(t, index+1, page.Number)
		assert.Equal(t, pdfrender.FormatPNG, page.Format)
		assert.False(t, page.Blank)

		img, decodeErr := png.Decode(bytes.NewReader(page.Data))
		require.NoError(t, decodeErr)
		assert.Equal(t, page.Width, img.Bounds().Dx())
		// 144pt page at 72 DPI.
		assert.InDelta(t, 144, page.Width, 1)
	}
}

func TestFitzConverter_Deterministic(t *testing.T) {
	t.Parallel()

	converter := newFitzConverter(&pdfrender.Options{DPI: 72})
	document := pdftest.Build(2)

	first, err := converter.Convert(context.Background(), document)
	require.NoError(t, err)

	second, err := converter.Convert(context.Background(), document)
	require.NoError(t, err)

	require.Len(t, second, len(first))

	for index := range first {
		assert.Equal(t, first[index].Number, second[index].Number)
		assert.Equal(t, first[index].Data, second[index].Data)
	}
}

func TestFitzConverter_Errors(t *testing.T) {
	t.Parallel()

	converter := newFitzConverter(&pdfrender.Options{})

	_, err := converter.Convert(context.Background(), nil)
	require.ErrorIs(t, err, pdfrender.ErrEmptyInput)

	_, err = converter.Convert(context.Background(), []byte("this is plain text, not a PDF"))
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = converter.Convert(ctx, pdftest.Build(1))
	require.ErrorIs(t, err, context.Canceled)
}
