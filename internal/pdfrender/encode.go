package pdfrender

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/book-expert/pdf-to-images-api/internal/blank"
)

// pageEncoder turns a rasterized page into the final Page every strategy returns.
type pageEncoder struct {
	format      Format
	jpegQuality int
	maxWidth    int
	fuzzFactor  float64
	threshold   float64
	detectBlank bool
}

func newPageEncoder(opts *Options) *pageEncoder {
	return &pageEncoder{
		format:      opts.Format,
		jpegQuality: opts.JPEGQuality,
		maxWidth:    opts.MaxWidth,
		fuzzFactor:  float64(opts.BlankFuzzPercent) / blank.PercentToRatio,
		threshold:   opts.BlankNonWhiteThreshold,
		detectBlank: opts.DetectBlank,
	}
}

// encode resizes img when it is wider than maxWidth and encodes it as page number.
func (encoder *pageEncoder) encode(number int, img image.Image) (Page, error) {
	if encoder.maxWidth > 0 && img.Bounds().Dx() > encoder.maxWidth {
		img = imaging.Resize(img, encoder.maxWidth, 0, imaging.Lanczos)
	}

	isBlank := false

	if encoder.detectBlank {
		hasContent, detectErr := blank.HasContent(img, encoder.fuzzFactor, encoder.threshold)
		if detectErr != nil {
			return Page{}, fmt.Errorf("blank detection failed for page %d: %w", number, detectErr)
		}

		isBlank = !hasContent
	}

	var buf bytes.Buffer

	encodeErr := imaging.Encode(&buf, img, encoder.imagingFormat(), imaging.JPEGQuality(encoder.jpegQuality))
	if encodeErr != nil {
		return Page{}, fmt.Errorf("failed to encode page %d as %s: %w", number, encoder.format, encodeErr)
	}

	bounds := img.Bounds()

	return Page{
		Data:   buf.Bytes(),
		Format: encoder.format,
		Number: number,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Blank:  isBlank,
	}, nil
}

func (encoder *pageEncoder) imagingFormat() imaging.Format {
	if encoder.format == FormatJPEG {
		return imaging.JPEG
	}

	return imaging.PNG
}
