// Command pdf2images converts every PDF of a directory into page images on disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/pdf-to-images-api/internal/config"
	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

var (
	// ErrInputPathRequired is returned when no input directory is configured.
	ErrInputPathRequired = errors.New("input path is required")
	// ErrOutputPathRequired is returned when no output directory is configured.
	ErrOutputPathRequired = errors.New("output path is required")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The `run` function contains the core application logic.
	// We call it and then os.Exit to ensure deferred functions are run correctly.
	err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main logic function, separated from main to allow for easier testing and
// clean exit handling.
func run(ctx context.Context, args []string, progressOutput io.Writer) error {
	flgs, parseErr := parseFlags(args)
	if parseErr != nil {
		return parseErr
	}

	cfg, loadErr := config.Load(".")
	if loadErr != nil {
		return fmt.Errorf("could not load configuration: %w", loadErr)
	}

	options := mergeConfigAndFlags(cfg, flgs)

	return processWithLogger(ctx, &options, cfg.Paths.BaseLogsDir, progressOutput)
}

// flags represents the command-line arguments.
type flags struct {
	inputPath  string
	outputPath string
	renderer   string
	format     string
	dpi        int
	workers    int
}

// parseFlags defines and parses command-line flags.
func parseFlags(args []string) (flags, error) {
	var flagsVar flags

	flagSet := flag.NewFlagSet("pdf2images", flag.ContinueOnError)
	flagSet.StringVar(&flagsVar.inputPath, "input", "", "Input directory for PDF files (required).")
	flagSet.StringVar(&flagsVar.outputPath, "output", "", "Output directory for page images (required).")
	flagSet.StringVar(&flagsVar.renderer, "renderer", "", "Renderer: fitz, pdfium, ghostscript or cloudconvert.")
	flagSet.StringVar(&flagsVar.format, "format", "", "Image format: png or jpeg.")
	flagSet.IntVar(&flagsVar.dpi, "dpi", 0, "Resolution in DPI for the output images.")
	flagSet.IntVar(&flagsVar.workers, "workers", 0, "Number of concurrent workers.")

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		return flags{}, fmt.Errorf("invalid arguments: %w", parseErr)
	}

	return flagsVar, nil
}

// batchOptions is what a batch run needs once config and flags are merged.
type batchOptions struct {
	render     *pdfrender.Options
	inputPath  string
	outputPath string
}

// mergeConfigAndFlags combines settings from the config file and command-line flags.
// Flags take precedence over the config file settings.
func mergeConfigAndFlags(cfg *config.Config, flgs flags) batchOptions {
	opts := batchOptions{
		render:     cfg.RenderOptions(),
		inputPath:  cfg.Paths.InputDir,
		outputPath: cfg.Paths.OutputDir,
	}

	// Command-line flags override config file values.
	if flgs.inputPath != "" {
		opts.inputPath = flgs.inputPath
	}

	if flgs.outputPath != "" {
		opts.outputPath = flgs.outputPath
	}

	if flgs.renderer != "" {
		opts.render.Renderer = flgs.renderer
	}

	if flgs.format != "" {
		opts.render.Format = pdfrender.Format(flgs.format)
	}

	if flgs.dpi > 0 {
		opts.render.DPI = flgs.dpi
	}

	if flgs.workers > 0 {
		opts.render.Workers = flgs.workers
	}

	return opts
}

// processWithLogger sets up the logger and runs the batch.
func processWithLogger(
	ctx context.Context,
	options *batchOptions,
	logDir string,
	progressOutput io.Writer,
) error {
	log, err := setupLogger(logDir)
	if err != nil {
		return fmt.Errorf("could not set up logger: %w", err)
	}

	defer func() {
		cerr := log.Close()
		if cerr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", cerr)
		}
	}()

	converter, converterErr := pdfrender.New(options.render, log)
	if converterErr != nil {
		return fmt.Errorf("could not create converter: %w", converterErr)
	}
	defer func() { _ = converter.Close() }()

	result, batchErr := newBatch(converter, options, log, progressOutput).run(ctx)
	if batchErr != nil {
		return fmt.Errorf("PDF processing failed: %w", batchErr)
	}

	log.Info("Converted %d of %d PDF(s)", result.converted, result.total)

	return nil
}

// setupLogger initializes the logger, creating the log directory if needed.
func setupLogger(logDir string) (*logger.Logger, error) {
	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("20060102_150405"))

	log, err := logger.New(filepath.Clean(logDir), logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}
