package pdfrender

// Exported test-only accessors for unexported functions and fields.

// ParsePdfInfoOutputForTest exposes parsePdfInfoOutput for tests in external package.
func ParsePdfInfoOutputForTest(s string) (int, error) { return parsePdfInfoOutput(s) }

// ApplyDefaultOptionsForTest exposes applyDefaultOptions.
func ApplyDefaultOptionsForTest(opts *Options) { applyDefaultOptions(opts) }

// PageNumberOfForTest exposes pageNumberOf.
func PageNumberOfForTest(filename string) int { return pageNumberOf(filename) }

// BuildGhostscriptArgsForTest exposes buildGhostscriptArgs.
func BuildGhostscriptArgsForTest(dpi, page int, outPath, pdfPath string) []string {
	return buildGhostscriptArgs(dpi, page, outPath, pdfPath)
}

// SetExecutorForTest allows tests to inject a fake executor.
func (c *GhostscriptConverter) SetExecutorForTest(exec CommandExecutor) {
	c.executor = exec
}
