package pdfrender

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/book-expert/logger"
	"github.com/disintegration/imaging"
)

var (
	// ErrPageCountUnavailable is returned when pdfinfo output has no page count.
	ErrPageCountUnavailable = errors.New("could not parse 'Pages:' line from pdfinfo output")
	errEmptyPath            = errors.New("pdf path and output path cannot be empty")
	errNonPositivePage      = errors.New("page number must be positive")
)

// CommandExecutor defines an interface for running external commands.
type CommandExecutor interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// RunCombined executes a command and returns its combined standard output and
	// standard error.
	RunCombined(ctx context.Context, name string, args ...string) ([]byte, error)
}

// defaultExecutor implements CommandExecutor with os/exec.
type defaultExecutor struct{}

// Run is the production implementation for executing a command.
func (executor *defaultExecutor) Run(
	ctx context.Context,
	name string,
	args ...string,
) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// RunCombined is the production implementation for executing a command and capturing all
// output.
func (executor *defaultExecutor) RunCombined(
	ctx context.Context,
	name string,
	args ...string,
) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// GhostscriptConverter renders pages with the pdfinfo and ghostscript command-line tools.
// Every conversion stages its input and output in a private workspace directory that
// is removed before Convert returns.
type GhostscriptConverter struct {
	executor CommandExecutor
	log      *logger.Logger
	encoder  *pageEncoder
	tempDir  string
	dpi      int
	workers  int
}

// NewGhostscriptConverter creates a converter backed by the system ghostscript binary.
func NewGhostscriptConverter(opts *Options, log *logger.Logger) *GhostscriptConverter {
	return &GhostscriptConverter{
		executor: &defaultExecutor{},
		log:      log,
		encoder:  newPageEncoder(opts),
		tempDir:  opts.TempDir,
		dpi:      opts.DPI,
		workers:  opts.Workers,
	}
}

// Name implements Converter.
func (c *GhostscriptConverter) Name() string { return RendererGhostscript }

// Close implements Converter.
func (c *GhostscriptConverter) Close() error { return nil }

// Convert implements Converter.
func (c *GhostscriptConverter) Convert(ctx context.Context, pdf []byte) ([]Page, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyInput
	}

	ws, wsErr := newWorkspace(c.tempDir)
	if wsErr != nil {
		return nil, wsErr
	}
	defer ws.remove(c.log)

	inputPath, stageErr := ws.writeInput(pdf)
	if stageErr != nil {
		return nil, stageErr
	}

	pageCount, pageCountErr := c.getPDFPages(ctx, inputPath)
	if pageCountErr != nil {
		return nil, fmt.Errorf("could not get page count: %w", pageCountErr)
	}

	if pageCount <= 0 {
		return nil, ErrPDFZeroOrNegativePages
	}

	outputDir, setupErr := setupOutputDirectory(ws.dir, inputPath, "png")
	if setupErr != nil {
		return nil, fmt.Errorf("could not set up output directory: %w", setupErr)
	}

	c.log.Info("Rendering %d pages into %s", pageCount, outputDir)

	pngPaths, renderErr := newPageProcessor(c, outputDir).processPages(ctx, inputPath, pageCount)
	if renderErr != nil {
		return nil, renderErr
	}

	pages := make([]Page, 0, pageCount)

	for index, pngPath := range pngPaths {
		img, decodeErr := imaging.Open(pngPath)
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to read rendered page %d: %w", index+1, decodeErr)
		}

		page, encodeErr := c.encoder.encode(index+1, img)
		if encodeErr != nil {
			return nil, encodeErr
		}

		pages = append(pages, page)
	}

	return pages, nil
}

// getPDFPages executes `pdfinfo` to determine the number of pages in a PDF.
func (c *GhostscriptConverter) getPDFPages(ctx context.Context, pdfPath string) (int, error) {
	if pdfPath == "" {
		return 0, errEmptyPath
	}

	outputBytes, execErr := c.executor.Run(ctx, "pdfinfo", pdfPath)
	if execErr != nil {
		return 0, fmt.Errorf(
			"pdfinfo execution failed: %w. Output: %s",
			execErr,
			string(outputBytes),
		)
	}

	return parsePdfInfoOutput(string(outputBytes))
}

// parsePdfInfoOutput scans pdfinfo output for the "Pages:" line.
func parsePdfInfoOutput(output string) (int, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Pages:") {
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				pageCount, convErr := strconv.Atoi(parts[1])
				if convErr == nil {
					return pageCount, nil
				}
			}
		}
	}

	return 0, ErrPageCountUnavailable
}

// renderPage runs ghostscript to convert a single PDF page to a PNG image.
func (c *GhostscriptConverter) renderPage(
	ctx context.Context,
	pdfPath string,
	page int,
	outPath string,
) error {
	if page <= 0 {
		return errNonPositivePage
	}

	if pdfPath == "" || outPath == "" {
		return errEmptyPath
	}

	args := buildGhostscriptArgs(c.dpi, page, outPath, pdfPath)

	outputBytes, execErr := c.executor.RunCombined(ctx, "ghostscript", args...)
	if execErr != nil {
		return fmt.Errorf(
			"ghostscript execution failed: %w. Output: %s",
			execErr,
			string(outputBytes),
		)
	}

	return nil
}

// buildGhostscriptArgs constructs the ghostscript argument list for one page.
func buildGhostscriptArgs(dpi, page int, outPath, pdfPath string) []string {
	return []string{
		"-q", "-dNOPAUSE", "-dBATCH",
		"-sDEVICE=png16m",
		fmt.Sprintf("-r%d", dpi),
		fmt.Sprintf("-dFirstPage=%d", page),
		fmt.Sprintf("-dLastPage=%d", page),
		"-o", outPath,
		"-dTextAlphaBits=4",
		"-dGraphicsAlphaBits=4",
		"-dDownScaleFactor=1",
		"-dPDFFitPage",
		pdfPath,
	}
}
