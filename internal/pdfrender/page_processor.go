package pdfrender

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// pageJob represents a single task for a worker to render one page of a PDF.
type pageJob struct {
	pdfPath    string
	outputPath string
	pageIndex  int
}

// pageProcessor manages the concurrent rendering of pages for a single PDF file.
type pageProcessor struct {
	parent    *GhostscriptConverter
	outputDir string
}

func newPageProcessor(parent *GhostscriptConverter, outputDir string) *pageProcessor {
	return &pageProcessor{
		parent:    parent,
		outputDir: outputDir,
	}
}

// processPages renders every page through a bounded worker pool and returns the PNG
// paths ordered by page number. The first page failure fails the whole document.
func (pp *pageProcessor) processPages(
	ctx context.Context,
	pdfPath string,
	pageCount int,
) ([]string, error) {
	jobs := make(chan pageJob, pageCount)
	pageErrs := make([]error, pageCount)
	pngPaths := make([]string, pageCount)

	var waitGroup sync.WaitGroup

	workers := max(1, min(pp.parent.workers, pageCount))
	for range workers {
		waitGroup.Add(1)

		go pp.pageWorker(ctx, &waitGroup, jobs, pageErrs)
	}

	for i := 1; i <= pageCount; i++ {
		pngPath := filepath.Join(pp.outputDir, fmt.Sprintf("page_%04d.png", i))
		pngPaths[i-1] = pngPath
		jobs <- pageJob{
			pdfPath:    pdfPath,
			pageIndex:  i,
			outputPath: pngPath,
		}
	}

	close(jobs)

	waitGroup.Wait()

	for index, pageErr := range pageErrs {
		if pageErr != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", index+1, pageErr)
		}
	}

	return pngPaths, nil
}

// pageWorker pulls jobs until the channel is closed. Each worker writes only the error
// slots of the pages it handled.
func (pp *pageProcessor) pageWorker(
	ctx context.Context,
	waitGroup *sync.WaitGroup,
	jobs <-chan pageJob,
	pageErrs []error,
) {
	defer waitGroup.Done()

	for job := range jobs {
		if ctxErr := ctx.Err(); ctxErr != nil {
			pageErrs[job.pageIndex-1] = ctxErr

			continue
		}

		renderErr := pp.parent.renderPage(ctx, job.pdfPath, job.pageIndex, job.outputPath)
		if renderErr != nil {
			pp.parent.log.Warn(
				"Failed to render page %d of %s: %v",
				job.pageIndex,
				filepath.Base(job.pdfPath),
				renderErr,
			)
			pageErrs[job.pageIndex-1] = renderErr
		}
	}
}
