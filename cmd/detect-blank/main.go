// Command detect-blank renders a PDF and reports which of its pages are blank.
//
// Usage: detect-blank [-renderer name] [-dpi n] [-fuzz percent] [-threshold ratio] <file.pdf>
//
// Exit codes:
//
//	0 = at least one blank page
//	1 = every page has content
//	2 = error
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
	"strconv"
	"strings"
	"syscall"

	"github.com/book-expert/logger"

	"github.com/book-expert/pdf-to-images-api/internal/config"
	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

var (
	ErrInvalidArguments   = errors.New("invalid number of arguments")
	ErrInvalidFuzzPercent = errors.New("fuzz percentage must be between 0 and 100")
	ErrInvalidThreshold   = errors.New("non-white threshold must be between 0.0 and 1.0")
)

const (
	exitCodeBlank    = 0
	exitCodeNotBlank = 1
	exitCodeError    = 2
)

type arguments struct {
	pdfPath     string
	renderer    string
	dpi         int
	fuzzPercent int
	threshold   float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code, err := run(ctx, os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out io.Writer) (int, error) {
	cfg, loadErr := config.Load(".")
	if loadErr != nil {
		return exitCodeError, fmt.Errorf("could not load configuration: %w", loadErr)
	}

	parsed, parseErr := parseArguments(args, defaultArguments(cfg))
	if parseErr != nil {
		return exitCodeError, parseErr
	}

	log, logErr := logger.New(filepath.Clean(cfg.Paths.BaseLogsDir), "detect-blank.log")
	if logErr != nil {
		return exitCodeError, fmt.Errorf("failed to create logger: %w", logErr)
	}
	defer log.Close()

	converter, newErr := pdfrender.New(renderOptions(cfg, parsed), log)
	if newErr != nil {
		return exitCodeError, fmt.Errorf("could not create renderer: %w", newErr)
	}
	defer converter.Close()

	content, readErr := os.ReadFile(parsed.pdfPath)
	if readErr != nil {
		return exitCodeError, fmt.Errorf("could not read %s: %w", parsed.pdfPath, readErr)
	}

	blankPages, findErr := findBlankPages(ctx, converter, content)
	if findErr != nil {
		return exitCodeError, fmt.Errorf("could not analyze %s: %w", parsed.pdfPath, findErr)
	}

	log.Info("Found %d blank page(s) in %s", len(blankPages), parsed.pdfPath)

	return report(out, parsed.pdfPath, blankPages), nil
}

func defaultArguments(cfg *config.Config) arguments {
	return arguments{
		renderer:    cfg.Render.Renderer,
		dpi:         cfg.Render.DPI,
		fuzzPercent: cfg.BlankDetection.FuzzPercent,
		threshold:   cfg.BlankDetection.NonWhiteThreshold,
	}
}

// parseArguments reads the flags over defaults and expects exactly one PDF path.
func parseArguments(args []string, defaults arguments) (arguments, error) {
	parsed := defaults

	flagSet := flag.NewFlagSet("detect-blank", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&parsed.renderer, "renderer", defaults.renderer, "Renderer: fitz, pdfium, ghostscript or cloudconvert.")
	flagSet.IntVar(&parsed.dpi, "dpi", defaults.dpi, "Resolution in DPI used for the analysis.")
	flagSet.IntVar(&parsed.fuzzPercent, "fuzz", defaults.fuzzPercent, "Tolerated deviation from white, in percent.")
	flagSet.Float64Var(&parsed.threshold, "threshold", defaults.threshold, "Ratio of non-white pixels that marks content.")

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		return arguments{}, fmt.Errorf("failed to parse flags: %w", parseErr)
	}

	if flagSet.NArg() != 1 {
		return arguments{}, fmt.Errorf(
			"expected 1 PDF path, got %d. Usage: <program> [flags] <file.pdf>: %w",
			flagSet.NArg(),
			ErrInvalidArguments,
		)
	}

	if parsed.fuzzPercent < 0 || parsed.fuzzPercent > 100 {
		return arguments{}, fmt.Errorf("got %d: %w", parsed.fuzzPercent, ErrInvalidFuzzPercent)
	}

	if parsed.threshold < 0 || parsed.threshold > 1.0 {
		return arguments{}, fmt.Errorf("got %f: %w", parsed.threshold, ErrInvalidThreshold)
	}

	parsed.pdfPath = flagSet.Arg(0)

	return parsed, nil
}

func renderOptions(cfg *config.Config, args arguments) *pdfrender.Options {
	opts := cfg.RenderOptions()
	opts.Renderer = args.renderer
	opts.DPI = args.dpi
	opts.BlankFuzzPercent = args.fuzzPercent
	opts.BlankNonWhiteThreshold = args.threshold
	opts.DetectBlank = true

	return opts
}

// findBlankPages renders every page and returns the numbers of the blank ones in order.
func findBlankPages(ctx context.Context, converter pdfrender.Converter, pdf []byte) ([]int, error) {
	pages, convertErr := converter.Convert(ctx, pdf)
	if convertErr != nil {
		return nil, convertErr
	}

	var blankPages []int

	for _, page := range pages {
		if page.Blank {
			blankPages = append(blankPages, page.Number)
		}
	}

	return blankPages, nil
}

func report(out io.Writer, pdfPath string, blankPages []int) int {
	if len(blankPages) == 0 {
		fmt.Fprintf(out, "%s: no blank pages\n", pdfPath)

		return exitCodeNotBlank
	}

	numbers := make([]string, 0, len(blankPages))
	for _, number := range blankPages {
		numbers = append(numbers, strconv.Itoa(number))
	}

	fmt.Fprintf(out, "%s: blank pages %s\n", pdfPath, strings.Join(numbers, ", "))

	return exitCodeBlank
}
