package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// Validation failure codes carried by UploadError.
const (
	CodeNoFile          = "NO_FILE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

const (
	pdfMediaType = "application/pdf"
	// multipartOverhead is added to the body limit for boundaries and part headers.
	multipartOverhead = 1 << 20
	bytesPerMB        = 1 << 20
)

// UploadError is a client-side validation failure. It is always answered with 400.
type UploadError struct {
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadedFile is the validated PDF taken from the request.
type UploadedFile struct {
	Filename  string
	MediaType string
	Content   []byte
	Size      int64
}

// uploadAcceptor validates the multipart request and extracts exactly one PDF.
type uploadAcceptor struct {
	fieldName string
	maxBytes  int64
}

func newUploadAcceptor(fieldName string, maxBytes int64) *uploadAcceptor {
	return &uploadAcceptor{fieldName: fieldName, maxBytes: maxBytes}
}

// accept streams the multipart body and extracts the PDF part. The media type is checked on
// the part header before any content is read, so a non-PDF is rejected whatever its size.
func (a *uploadAcceptor) accept(w http.ResponseWriter, r *http.Request) (*UploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBytes+multipartOverhead)

	reader, readerErr := r.MultipartReader()
	if readerErr != nil {
		return nil, a.classifyParseError(readerErr)
	}

	var upload *UploadedFile

	for {
		part, partErr := reader.NextPart()
		if errors.Is(partErr, io.EOF) {
			break
		}

		if partErr != nil {
			return nil, a.classifyParseError(partErr)
		}

		if part.FormName() != a.fieldName || part.FileName() == "" {
			_ = part.Close()

			continue
		}

		if upload != nil {
			_ = part.Close()

			return nil, &UploadError{Code: CodeInvalidRequest, Message: "Only one PDF file may be uploaded"}
		}

		var acceptErr error

		upload, acceptErr = a.acceptPart(part)
		_ = part.Close()

		if acceptErr != nil {
			return nil, acceptErr
		}
	}

	if upload == nil || upload.Size == 0 {
		return nil, &UploadError{Code: CodeNoFile, Message: "No PDF file uploaded"}
	}

	return upload, nil
}

// acceptPart checks the declared media type and reads at most maxBytes of content.
func (a *uploadAcceptor) acceptPart(part *multipart.Part) (*UploadedFile, error) {
	mediaType, _, mediaErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
	if mediaErr != nil || mediaType != pdfMediaType {
		return nil, &UploadError{Code: CodeInvalidFileType, Message: "Only PDF files are allowed!"}
	}

	content, readErr := io.ReadAll(io.LimitReader(part, a.maxBytes+1))
	if readErr != nil {
		return nil, a.classifyParseError(readErr)
	}

	if int64(len(content)) > a.maxBytes {
		return nil, a.tooLarge()
	}

	return &UploadedFile{
		Filename:  part.FileName(),
		MediaType: mediaType,
		Content:   content,
		Size:      int64(len(content)),
	}, nil
}

func (a *uploadAcceptor) classifyParseError(parseErr error) error {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(parseErr, &maxBytesErr),
		strings.Contains(parseErr.Error(), "request body too large"):
		return a.tooLarge()
	case errors.Is(parseErr, http.ErrNotMultipart):
		return &UploadError{Code: CodeNoFile, Message: "No PDF file uploaded"}
	default:
		return &UploadError{
			Code:    CodeInvalidRequest,
			Message: fmt.Sprintf("Invalid multipart request: %v", parseErr),
		}
	}
}

func (a *uploadAcceptor) tooLarge() *UploadError {
	return &UploadError{
		Code:    CodeFileTooLarge,
		Message: fmt.Sprintf("File too large. Maximum size is %s.", formatLimit(a.maxBytes)),
	}
}

// formatLimit renders a byte limit the way users expect to read it, e.g. "10MB".
func formatLimit(limit int64) string {
	if limit >= bytesPerMB && limit%bytesPerMB == 0 {
		return fmt.Sprintf("%dMB", limit/bytesPerMB)
	}

	return fmt.Sprintf("%d bytes", limit)
}
