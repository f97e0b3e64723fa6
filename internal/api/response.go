package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

const (
	conversionFailedMessage = "Failed to convert PDF to images"
	fallbackMessage         = "PDF received successfully. Processing in browser..."
	fallbackNote            = "Server-side processing temporarily disabled. Use client-side processing."
	internalErrorMessage    = "Internal server error"
)

// ImageDTO is one rendered page in the convert response.
type ImageDTO struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Format   string `json:"format"`
	Page     int    `json:"page"`
}

// ConvertResponse is the body of a successful conversion.
type ConvertResponse struct {
	Message    string     `json:"message"`
	Filename   string     `json:"filename"`
	Images     []ImageDTO `json:"images"`
	TotalPages int        `json:"totalPages"`
	Size       int64      `json:"size"`
	Success    bool       `json:"success"`
}

// FallbackResponse echoes the PDF back when pages could not be rendered.
type FallbackResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Message    string `json:"message"`
	PDFData    string `json:"pdfData"`
	Note       string `json:"note"`
	Filename   string `json:"filename"`
	TotalPages int    `json:"totalPages,omitempty"`
	Size       int64  `json:"size"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Success bool   `json:"success"`
}

// dataURI embeds content as an inline base64 data URI.
func dataURI(mediaType string, content []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

func newConvertResponse(upload *UploadedFile, pages []pdfrender.Page) ConvertResponse {
	images := make([]ImageDTO, 0, len(pages))

	for _, page := range pages {
		images = append(images, ImageDTO{
			Filename: page.Filename(),
			Data:     dataURI(page.Format.MediaType(), page.Data),
			Format:   string(page.Format),
			Page:     page.Number,
		})
	}

	return ConvertResponse{
		Success:    true,
		Message:    fmt.Sprintf("PDF converted successfully. %d page(s) rendered.", len(pages)),
		Images:     images,
		TotalPages: len(pages),
		Filename:   upload.Filename,
		Size:       upload.Size,
	}
}

// newFallbackResponse builds the degraded answer. The page count is best effort and is
// omitted when the document cannot be parsed.
func newFallbackResponse(upload *UploadedFile, cause error) FallbackResponse {
	totalPages, countErr := pdfrender.CountPages(upload.Content)
	if countErr != nil {
		totalPages = 0
	}

	return FallbackResponse{
		Success:    false,
		Error:      conversionFailedMessage,
		Details:    cause.Error(),
		Message:    fallbackMessage,
		PDFData:    dataURI(pdfMediaType, upload.Content),
		Note:       fallbackNote,
		TotalPages: totalPages,
		Filename:   upload.Filename,
		Size:       upload.Size,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	body.Success = false
	writeJSON(w, status, body)
}
