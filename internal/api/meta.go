package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	Port        int    `json:"port"`
}

// RootResponse describes the available routes.
type RootResponse struct {
	Endpoints map[string]string `json:"endpoints"`
	Usage     UsageDTO          `json:"usage"`
	Message   string            `json:"message"`
	Renderer  string            `json:"renderer"`
}

// UsageDTO documents the expected convert request.
type UsageDTO struct {
	Method      string `json:"method"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Body        string `json:"body"`
	Response    string `json:"response"`
}

// MetaHandler serves the read-only endpoints.
type MetaHandler struct {
	now         func() time.Time
	environment string
	renderer    string
	fieldName   string
	port        int
}

// NewMetaHandler creates the handler for GET / and GET /health.
func NewMetaHandler(opts *Options, renderer string) *MetaHandler {
	applyDefaultOptions(opts)

	return &MetaHandler{
		now:         time.Now,
		environment: opts.Environment,
		renderer:    renderer,
		fieldName:   opts.FieldName,
		port:        opts.Port,
	}
}

// Health reports liveness.
func (h *MetaHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "OK",
		Message:     "PDF to Images API is running",
		Timestamp:   h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Environment: h.environment,
		Port:        h.port,
	})
}

// Root describes the API.
func (h *MetaHandler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message:  "PDF to Images API",
		Renderer: h.renderer,
		Endpoints: map[string]string{
			"POST " + convertPath: "Convert PDF file to images",
			"GET " + healthPath:   "Health check",
		},
		Usage: UsageDTO{
			Method:      http.MethodPost,
			URL:         convertPath,
			ContentType: "multipart/form-data",
			Body:        `pdf file (field name: "` + h.fieldName + `")`,
			Response:    "JSON with base64 encoded images",
		},
	})
}
