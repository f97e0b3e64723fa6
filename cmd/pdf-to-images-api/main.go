// This file orchestrates the pdf-to-images API, wiring configuration, the converter,
// optional NATS notifications and the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"

	"github.com/book-expert/pdf-to-images-api/internal/api"
	"github.com/book-expert/pdf-to-images-api/internal/config"
	"github.com/book-expert/pdf-to-images-api/internal/events"
	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

const logFileName = "pdf-to-images-api.log"

// main is the entry point of the application.
func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runErr := run(ctx)
	if runErr != nil {
		log.Printf("Fatal application error: %v", runErr)
		os.Exit(1)
	}

	log.Println("Application shut down gracefully.")
}

// run initializes all components and serves until ctx is canceled.
func run(ctx context.Context) error {
	cfg, loadErr := config.Load(".")
	if loadErr != nil {
		return fmt.Errorf("failed to load configuration: %w", loadErr)
	}

	appLogger, loggerErr := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if loggerErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", loggerErr)
	}
	defer func() {
		if closeErr := appLogger.Close(); closeErr != nil {
			log.Printf("Warning: failed to close app logger: %v", closeErr)
		}
	}()

	converter, converterErr := pdfrender.New(cfg.RenderOptions(), appLogger)
	if converterErr != nil {
		return fmt.Errorf("failed to create converter: %w", converterErr)
	}
	defer func() {
		if closeErr := converter.Close(); closeErr != nil {
			appLogger.Warn("Failed to close converter: %v", closeErr)
		}
	}()

	publisher := connectPublisher(cfg, appLogger)
	if publisher != nil {
		defer func() {
			if closeErr := publisher.Close(); closeErr != nil {
				appLogger.Warn("Failed to close NATS publisher: %v", closeErr)
			}
		}()
	}

	router := api.NewRouter(api.Deps{
		Converter: converter,
		Publisher: publisher,
		Log:       appLogger,
		Options:   apiOptions(cfg),
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	return serve(ctx, server, cfg, appLogger, converter.Name())
}

// connectPublisher returns nil when notifications are disabled or NATS is unreachable.
// The API keeps serving without them.
func connectPublisher(cfg *config.Config, appLogger *logger.Logger) events.Publisher {
	if cfg.NATS.URL == "" {
		return nil
	}

	publisher, connErr := events.Connect(cfg.NATS.URL, cfg.NATS.Subject, appLogger)
	if connErr != nil {
		appLogger.Warn("Conversion notifications disabled: %v", connErr)

		return nil
	}

	return publisher
}

func apiOptions(cfg *config.Config) *api.Options {
	return &api.Options{
		Environment:        cfg.Server.Environment,
		FieldName:          cfg.Upload.FieldName,
		CORSOrigins:        cfg.Server.CORSOrigins,
		MaxUploadBytes:     cfg.Upload.MaxBytes,
		RenderTimeout:      cfg.Render.Timeout(),
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		FallbackToPDF:      cfg.Render.FallbackToPDF,
	}
}

// serve runs the server and shuts it down gracefully once ctx is done.
func serve(
	ctx context.Context,
	server *http.Server,
	cfg *config.Config,
	appLogger *logger.Logger,
	renderer string,
) error {
	serveErrs := make(chan error, 1)

	go func() {
		appLogger.Info("PDF to Images API running on port %d (%s, renderer %s)",
			cfg.Server.Port, cfg.Server.Environment, renderer)
		appLogger.Info("Health check: http://localhost:%d/health", cfg.Server.Port)

		listenErr := server.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serveErrs <- listenErr
		}

		close(serveErrs)
	}()

	select {
	case listenErr := <-serveErrs:
		if listenErr != nil {
			return fmt.Errorf("http server failed: %w", listenErr)
		}

		return nil
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down, waiting up to %s for in-flight requests", cfg.Server.ShutdownTimeout())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("failed to shut down http server: %w", shutdownErr)
	}

	return nil
}
