// Package pdftest builds small, structurally valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

const (
	pageSize = 144
	// objects per page: the page dictionary and its content stream.
	objectsPerPage = 2
	firstPageObj   = 3
)

// Build returns a PDF with pageCount pages. Each page draws a black square so that
// rendered images are not blank.
func Build(pageCount int) []byte {
	return BuildWithBlankPages(pageCount)
}

// BuildWithBlankPages is Build with the listed 1-based pages left empty.
func BuildWithBlankPages(pageCount int, blankPages ...int) []byte {
	var buf bytes.Buffer

	objectCount := firstPageObj - 1 + pageCount*objectsPerPage
	offsets := make([]int, objectCount+1)

	buf.WriteString("%PDF-1.4\n")

	writeObject := func(number int, body string) {
		offsets[number] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", number, body)
	}

	kids := make([]string, 0, pageCount)
	for page := range pageCount {
		kids = append(kids, fmt.Sprintf("%d 0 R", firstPageObj+page*objectsPerPage))
	}

	writeObject(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObject(2, fmt.Sprintf(
		"<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "),
		pageCount,
	))

	for page := range pageCount {
		content := "0 0 0 rg 36 36 72 72 re f"
		if slices.Contains(blankPages, page+1) {
			content = "1 1 1 rg 0 0 1 1 re f"
		}

		pageObj := firstPageObj + page*objectsPerPage
		writeObject(pageObj, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Contents %d 0 R /Resources << >> >>",
			pageSize,
			pageSize,
			pageObj+1,
		))
		writeObject(pageObj+1, fmt.Sprintf(
			"<< /Length %d >>\nstream\n%s\nendstream",
			len(content),
			content,
		))
	}

	xrefOffset := buf.Len()

	fmt.Fprintf(&buf, "xref\n0 %d\n", objectCount+1)
	buf.WriteString("0000000000 65535 f \n")

	for number := 1; number <= objectCount; number++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[number])
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objectCount+1, xrefOffset)

	return buf.Bytes()
}
