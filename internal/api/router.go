package api

import (
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/book-expert/pdf-to-images-api/internal/events"
	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

const (
	convertPath = "/convert-pdf-to-images"
	healthPath  = "/health"
	rootPath    = "/"
	corsMaxAge  = 300
)

// Deps are the collaborators the router wires into its handlers.
type Deps struct {
	Converter pdfrender.Converter
	Publisher events.Publisher
	Log       *logger.Logger
	Options   *Options
}

// NewRouter builds the HTTP handler of the service.
func NewRouter(deps Deps) http.Handler {
	applyDefaultOptions(deps.Options)

	convertHandler := NewConvertHandler(deps.Converter, deps.Publisher, deps.Options, deps.Log)
	metaHandler := NewMetaHandler(deps.Options, deps.Converter.Name())

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(deps.Log))
	r.Use(recoverMiddleware(deps.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Options.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         corsMaxAge,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
	})

	r.Get(rootPath, metaHandler.Root)
	r.Get(healthPath, metaHandler.Health)

	r.Group(func(r chi.Router) {
		if deps.Options.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				deps.Options.RateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests"})
				}),
			))
		}

		r.Method(http.MethodPost, convertPath, convertHandler)
	})

	return r
}
