package pdfrender

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ErrMalformedPDF is returned when the document structure cannot be parsed.
var ErrMalformedPDF = errors.New("malformed pdf")

// CountPages reads the page tree of a PDF without rendering anything.
func CountPages(content []byte) (pageCount int, err error) {
	if len(content) == 0 {
		return 0, ErrEmptyInput
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if recovered := recover(); recovered != nil {
			pageCount = 0
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, recovered)
		}
	}()

	reader, readErr := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if readErr != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedPDF, readErr)
	}

	return reader.NumPage(), nil
}
