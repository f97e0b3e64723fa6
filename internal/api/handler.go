// Package api exposes the PDF conversion service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/pdf-to-images-api/internal/events"
	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

// Options holds all configurable parameters of the HTTP layer.
type Options struct {
	Environment        string
	FieldName          string
	CORSOrigins        []string
	MaxUploadBytes     int64
	RenderTimeout      time.Duration
	Port               int
	RateLimitPerMinute int
	FallbackToPDF      bool
}

const (
	defaultFieldName      = "pdf"
	defaultMaxUploadBytes = 10 << 20
	defaultRenderTimeout  = 2 * time.Minute
	defaultPort           = 3000
	defaultEnvironment    = "development"
)

// applyDefaultOptions fills zero-value fields in Options with sensible defaults.
func applyDefaultOptions(opts *Options) {
	if opts.FieldName == "" {
		opts.FieldName = defaultFieldName
	}

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = defaultRenderTimeout
	}

	if opts.Port <= 0 {
		opts.Port = defaultPort
	}

	if opts.Environment == "" {
		opts.Environment = defaultEnvironment
	}

	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
}

// ConvertHandler serves POST /convert-pdf-to-images.
type ConvertHandler struct {
	converter pdfrender.Converter
	publisher events.Publisher
	acceptor  *uploadAcceptor
	log       *logger.Logger
	opts      *Options
}

// NewConvertHandler creates the conversion handler. publisher may be nil.
func NewConvertHandler(
	converter pdfrender.Converter,
	publisher events.Publisher,
	opts *Options,
	log *logger.Logger,
) *ConvertHandler {
	applyDefaultOptions(opts)

	return &ConvertHandler{
		converter: converter,
		publisher: publisher,
		acceptor:  newUploadAcceptor(opts.FieldName, opts.MaxUploadBytes),
		log:       log,
		opts:      opts,
	}
}

func (h *ConvertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upload, uploadErr := h.acceptor.accept(w, r)
	if uploadErr != nil {
		h.respondUploadError(w, r, uploadErr)

		return
	}

	requestID := RequestIDFrom(r.Context())
	h.log.Info(
		"Request [%s]: converting '%s' (%d bytes) with %s",
		requestID,
		upload.Filename,
		upload.Size,
		h.converter.Name(),
	)

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RenderTimeout)
	defer cancel()

	pages, convertErr := h.converter.Convert(ctx, upload.Content)
	if convertErr != nil {
		h.respondConversionError(w, requestID, upload, convertErr)

		return
	}

	h.log.Success("Request [%s]: rendered %d page(s) of '%s'", requestID, len(pages), upload.Filename)
	h.publish(requestID, upload, len(pages))

	writeJSON(w, http.StatusOK, newConvertResponse(upload, pages))
}

func (h *ConvertHandler) respondUploadError(w http.ResponseWriter, r *http.Request, uploadErr error) {
	var validationErr *UploadError
	if errors.As(uploadErr, &validationErr) {
		h.log.Warn("Request [%s]: rejected upload: %v", RequestIDFrom(r.Context()), validationErr)
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error: validationErr.Message,
			Code:  validationErr.Code,
		})

		return
	}

	h.log.Error("Request [%s]: failed to read upload: %v", RequestIDFrom(r.Context()), uploadErr)
	writeError(w, http.StatusInternalServerError, ErrorResponse{
		Error:   internalErrorMessage,
		Details: uploadErr.Error(),
	})
}

func (h *ConvertHandler) respondConversionError(
	w http.ResponseWriter,
	requestID string,
	upload *UploadedFile,
	convertErr error,
) {
	if errors.Is(convertErr, pdfrender.ErrRenderingUnavailable) || h.opts.FallbackToPDF {
		h.log.Warn("Request [%s]: returning PDF for client-side rendering: %v", requestID, convertErr)
		writeJSON(w, http.StatusOK, newFallbackResponse(upload, convertErr))

		return
	}

	h.log.Error("Request [%s]: conversion of '%s' failed: %v", requestID, upload.Filename, convertErr)
	writeError(w, http.StatusInternalServerError, ErrorResponse{
		Error:   conversionFailedMessage,
		Details: convertErr.Error(),
	})
}

// publish notifies subscribers. Failures never affect the HTTP response.
func (h *ConvertHandler) publish(requestID string, upload *UploadedFile, totalPages int) {
	if h.publisher == nil {
		return
	}

	pubErr := h.publisher.PublishConversion(events.Conversion{
		RequestID:  requestID,
		Filename:   upload.Filename,
		Renderer:   h.converter.Name(),
		Size:       upload.Size,
		TotalPages: totalPages,
	})
	if pubErr != nil {
		h.log.Warn("Request [%s]: %v", requestID, pubErr)
	}
}
