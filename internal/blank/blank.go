// Package blank decides whether a rendered page image is blank (mostly white) or carries
// content.
package blank

import (
	"errors"
	"image"
	"image/color"
)

// ErrImageZeroPixels is returned for images with an empty bounding box.
var ErrImageZeroPixels = errors.New("image has zero pixels")

const (
	// PercentToRatio converts a 0..100 fuzz percentage into a 0..1 factor.
	PercentToRatio = 100.0
	maxColorValue  = 255.0
	bitsToShift    = 8
)

// HasContent reports whether the ratio of non-white pixels in img reaches threshold.
// fuzzFactor (0..1) is the tolerated deviation from pure white.
func HasContent(img image.Image, fuzzFactor, threshold float64) (bool, error) {
	bounds := img.Bounds()

	totalPixels := float64(bounds.Dx() * bounds.Dy())
	if totalPixels == 0 {
		return false, ErrImageZeroPixels
	}

	nonWhiteCount := countNonWhitePixels(img, fuzzFactor)

	return nonWhiteCount/totalPixels >= threshold, nil
}

func countNonWhitePixels(img image.Image, fuzzFactor float64) float64 {
	nonWhiteCount := 0.0
	whiteThreshold := uint32((1.0 - fuzzFactor) * maxColorValue)

	visitPixels(img, func(c color.Color) {
		if isNonWhite(c, whiteThreshold) {
			nonWhiteCount++
		}
	})

	return nonWhiteCount
}

func visitPixels(img image.Image, visitor func(c color.Color)) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			visitor(img.At(x, y))
		}
	}
}

// isNonWhite compares the 8-bit channels of a pixel against whiteThreshold.
// RGBA() yields 16-bit pre-multiplied values.
func isNonWhite(c color.Color, whiteThreshold uint32) bool {
	r, g, b, _ := c.RGBA()

	r8, g8, b8 := r>>bitsToShift, g>>bitsToShift, b>>bitsToShift

	return r8 < whiteThreshold || g8 < whiteThreshold || b8 < whiteThreshold
}
