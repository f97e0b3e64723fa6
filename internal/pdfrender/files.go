// Package pdfrender provides PDF-to-image conversion functionality.
package pdfrender

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

const (
	defaultDirMode  = 0o750
	defaultFileMode = 0o600
	inputFileName   = "input.pdf"
)

// DiscoverPDFs finds all PDF files in a given directory.
// It performs a case-insensitive search and does not recurse into subdirectories.
func DiscoverPDFs(dirPath string) ([]string, error) {
	dirEntries, readErr := os.ReadDir(dirPath)
	if readErr != nil {
		return nil, fmt.Errorf("could not read directory %s: %w", dirPath, readErr)
	}

	var pdfPaths []string

	for _, entry := range dirEntries {
		if !entry.IsDir() &&
			strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {

			pdfPaths = append(pdfPaths, filepath.Join(dirPath, entry.Name()))
		}
	}

	return pdfPaths, nil
}

// setupOutputDirectory creates a structured output folder for a given PDF's pages.
// For a PDF named 'mydoc.pdf' and subDir "png", it creates '<baseOutputPath>/mydoc/png/'.
func setupOutputDirectory(baseOutputPath, pdfPath, subDir string) (string, error) {
	pdfBaseName := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outputDir := filepath.Join(baseOutputPath, pdfBaseName, subDir)

	mkdirErr := os.MkdirAll(outputDir, defaultDirMode)
	if mkdirErr != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, mkdirErr)
	}

	return outputDir, nil
}

// WritePages stores pages under '<baseOutputPath>/<pdf name>/<ext>/page-N.<ext>' and
// returns the directory they were written to.
func WritePages(baseOutputPath, pdfPath string, pages []Page) (string, error) {
	if len(pages) == 0 {
		return "", ErrPDFZeroOrNegativePages
	}

	outputDir, setupErr := setupOutputDirectory(baseOutputPath, pdfPath, pages[0].Format.Extension())
	if setupErr != nil {
		return "", setupErr
	}

	for _, page := range pages {
		pagePath := filepath.Join(outputDir, page.Filename())

		writeErr := os.WriteFile(pagePath, page.Data, defaultFileMode)
		if writeErr != nil {
			return "", fmt.Errorf("failed to write %s: %w", pagePath, writeErr)
		}
	}

	return outputDir, nil
}

// workspace is the per-conversion scratch directory. It must be removed before the
// conversion returns.
type workspace struct {
	dir string
}

// newWorkspace creates a uniquely named directory under baseDir.
func newWorkspace(baseDir string) (*workspace, error) {
	dir, mkdirErr := os.MkdirTemp(baseDir, fmt.Sprintf("pdf-%s-", uuid.NewString()))
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", mkdirErr)
	}

	return &workspace{dir: dir}, nil
}

// writeInput stages the PDF content as input.pdf inside the workspace.
func (ws *workspace) writeInput(content []byte) (string, error) {
	inputPath := filepath.Join(ws.dir, inputFileName)

	writeErr := os.WriteFile(inputPath, content, defaultFileMode)
	if writeErr != nil {
		return "", fmt.Errorf("failed to stage PDF in %s: %w", ws.dir, writeErr)
	}

	return inputPath, nil
}

// remove deletes the workspace and everything in it.
func (ws *workspace) remove(log *logger.Logger) {
	removeErr := os.RemoveAll(ws.dir)
	if removeErr != nil {
		log.Warn("Failed to remove temp directory '%s': %v", ws.dir, removeErr)
	}
}
