package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/cheggaaa/pb/v3"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

// batch converts every PDF of a directory with one converter.
type batch struct {
	converter      pdfrender.Converter
	log            *logger.Logger
	options        *batchOptions
	progressOutput io.Writer
}

// batchResult counts the PDFs seen and the ones written successfully.
type batchResult struct {
	total     int
	converted int
}

func newBatch(
	converter pdfrender.Converter,
	options *batchOptions,
	log *logger.Logger,
	progressOutput io.Writer,
) *batch {
	return &batch{
		converter:      converter,
		log:            log,
		options:        options,
		progressOutput: progressOutput,
	}
}

// run processes all PDFs. A failing PDF is logged and skipped.
func (b *batch) run(ctx context.Context) (batchResult, error) {
	validateErr := b.validate()
	if validateErr != nil {
		return batchResult{}, validateErr
	}

	pdfPaths, discoveryErr := pdfrender.DiscoverPDFs(b.options.inputPath)
	if discoveryErr != nil {
		return batchResult{}, fmt.Errorf("failed to discover PDFs: %w", discoveryErr)
	}

	if len(pdfPaths) == 0 {
		return batchResult{}, fmt.Errorf(
			"no PDF files found in %s: %w",
			b.options.inputPath,
			os.ErrNotExist,
		)
	}

	result := batchResult{total: len(pdfPaths)}

	mainProgressBar := pb.New(len(pdfPaths)).
		SetTemplateString(`{{ bar . " " "━" "━" " " " "}} {{percent .}} {{rtime .}}`).
		SetWriter(b.progressOutput).
		Start()
	defer mainProgressBar.Finish()

	for _, pdfPath := range pdfPaths {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("batch interrupted: %w", ctxErr)
		}

		mainProgressBar.Increment()
		b.log.Info("Starting processing for: %s", filepath.Base(pdfPath))

		outputDir, processErr := b.processOnePDF(ctx, pdfPath)
		if processErr != nil {
			b.log.Error("Failed to process %s: %v", filepath.Base(pdfPath), processErr)

			continue
		}

		result.converted++
		b.log.Success("Successfully processed %s into %s", filepath.Base(pdfPath), outputDir)
	}

	return result, nil
}

func (b *batch) validate() error {
	if b.options.inputPath == "" {
		return ErrInputPathRequired
	}

	if b.options.outputPath == "" {
		return ErrOutputPathRequired
	}

	return nil
}

// processOnePDF renders one file and writes its pages.
func (b *batch) processOnePDF(ctx context.Context, pdfPath string) (string, error) {
	content, readErr := os.ReadFile(pdfPath)
	if readErr != nil {
		return "", fmt.Errorf("could not read %s: %w", pdfPath, readErr)
	}

	pages, convertErr := b.converter.Convert(ctx, content)
	if convertErr != nil {
		return "", fmt.Errorf("%s conversion failed: %w", b.converter.Name(), convertErr)
	}

	return pdfrender.WritePages(b.options.outputPath, pdfPath, pages)
}
