package pdfrender

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/book-expert/logger"
	"github.com/disintegration/imaging"
)

var (
	// ErrPollAttemptsExhausted is returned when a remote job does not finish in time.
	ErrPollAttemptsExhausted = errors.New("remote conversion did not finish within the poll budget")
	// ErrRemoteJobFailed is returned when the remote service reports a failed job.
	ErrRemoteJobFailed = errors.New("remote conversion job failed")
	// ErrRemoteRequest is returned for unexpected HTTP status codes from the service.
	ErrRemoteRequest = errors.New("remote conversion request failed")
	// ErrNoExportedFiles is returned when a finished job exported nothing.
	ErrNoExportedFiles = errors.New("remote conversion produced no files")
)

const (
	jobStatusFinished = "finished"
	jobStatusError    = "error"

	importTaskName  = "import-pdf"
	convertTaskName = "convert-pages"
	exportTaskName  = "export-pages"

	maxRemoteErrorBody = 4096
)

var trailingNumber = regexp.MustCompile(`(\d+)\.[A-Za-z0-9]+$`)

// CloudConvertConverter delegates rendering to the CloudConvert v2 jobs API.
// A job is created, then polled at a fixed interval for a fixed number of attempts.
type CloudConvertConverter struct {
	client       *http.Client
	log          *logger.Logger
	encoder      *pageEncoder
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxAttempts  int
	dpi          int
}

// NewCloudConvertConverter creates a remote converter. opts must carry an API key.
func NewCloudConvertConverter(opts *Options, log *logger.Logger) *CloudConvertConverter {
	return &CloudConvertConverter{
		client:       opts.HTTPClient,
		log:          log,
		encoder:      newPageEncoder(opts),
		apiKey:       opts.CloudConvert.APIKey,
		baseURL:      opts.CloudConvert.BaseURL,
		pollInterval: opts.CloudConvert.PollInterval,
		maxAttempts:  opts.CloudConvert.MaxAttempts,
		dpi:          opts.DPI,
	}
}

type jobEnvelope struct {
	Data remoteJob `json:"data"`
}

type remoteJob struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Tasks  []remoteTask `json:"tasks"`
}

type remoteTask struct {
	Result    *taskResult `json:"result"`
	Name      string      `json:"name"`
	Operation string      `json:"operation"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
}

type taskResult struct {
	Files []remoteFile `json:"files"`
}

type remoteFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Name implements Converter.
func (c *CloudConvertConverter) Name() string { return RendererCloudConvert }

// Close implements Converter.
func (c *CloudConvertConverter) Close() error { return nil }

// Convert implements Converter.
func (c *CloudConvertConverter) Convert(ctx context.Context, pdf []byte) ([]Page, error) {
	if len(pdf) == 0 {
		return nil, ErrEmptyInput
	}

	jobID, createErr := c.createJob(ctx, pdf)
	if createErr != nil {
		return nil, createErr
	}

	c.log.Info("Created remote conversion job %s", jobID)

	job, waitErr := c.waitForJob(ctx, jobID)
	if waitErr != nil {
		return nil, waitErr
	}

	files := exportedFiles(job)
	if len(files) == 0 {
		return nil, ErrNoExportedFiles
	}

	pages := make([]Page, 0, len(files))

	for index, file := range files {
		page, pageErr := c.fetchPage(ctx, index+1, file)
		if pageErr != nil {
			return nil, pageErr
		}

		pages = append(pages, page)
	}

	return pages, nil
}

func (c *CloudConvertConverter) createJob(ctx context.Context, pdf []byte) (string, error) {
	payload := map[string]any{
		"tasks": map[string]any{
			importTaskName: map[string]any{
				"operation": "import/base64",
				"file":      base64.StdEncoding.EncodeToString(pdf),
				"filename":  inputFileName,
			},
			convertTaskName: map[string]any{
				"operation":     "convert",
				"input":         importTaskName,
				"input_format":  "pdf",
				"output_format": "png",
				"pixel_density": c.dpi,
			},
			exportTaskName: map[string]any{
				"operation": "export/url",
				"input":     convertTaskName,
			},
		},
	}

	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return "", fmt.Errorf("failed to marshal job request: %w", marshalErr)
	}

	var envelope jobEnvelope

	requestErr := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v2/jobs", body, &envelope)
	if requestErr != nil {
		return "", fmt.Errorf("failed to create conversion job: %w", requestErr)
	}

	if envelope.Data.ID == "" {
		return "", fmt.Errorf("%w: job created without an id", ErrRemoteRequest)
	}

	return envelope.Data.ID, nil
}

// waitForJob polls the job until it finishes, fails, or the attempts run out.
func (c *CloudConvertConverter) waitForJob(ctx context.Context, jobID string) (*remoteJob, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var envelope jobEnvelope

		requestErr := c.doJSON(ctx, http.MethodGet, c.baseURL+"/v2/jobs/"+jobID, nil, &envelope)
		if requestErr != nil {
			return nil, fmt.Errorf("failed to poll job %s: %w", jobID, requestErr)
		}

		switch envelope.Data.Status {
		case jobStatusFinished:
			return &envelope.Data, nil
		case jobStatusError:
			return nil, fmt.Errorf("%w: %s", ErrRemoteJobFailed, failedTaskMessage(&envelope.Data))
		}

		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling job %s canceled: %w", jobID, ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}

	return nil, fmt.Errorf("%w: job %s after %d attempts", ErrPollAttemptsExhausted, jobID, c.maxAttempts)
}

func (c *CloudConvertConverter) fetchPage(ctx context.Context, number int, file remoteFile) (Page, error) {
	data, downloadErr := c.download(ctx, file.URL)
	if downloadErr != nil {
		return Page{}, fmt.Errorf("failed to download %s: %w", file.Filename, downloadErr)
	}

	img, decodeErr := imaging.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return Page{}, fmt.Errorf("failed to decode %s: %w", file.Filename, decodeErr)
	}

	return c.encoder.encode(number, img)
}

func (c *CloudConvertConverter) download(ctx context.Context, url string) ([]byte, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to build request: %w", reqErr)
	}

	resp, doErr := c.client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("request failed: %w", doErr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRemoteRequest, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *CloudConvertConverter) doJSON(
	ctx context.Context,
	method, url string,
	body []byte,
	target any,
) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, url, reader)
	if reqErr != nil {
		return fmt.Errorf("failed to build request: %w", reqErr)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, doErr := c.client.Do(req)
	if doErr != nil {
		return fmt.Errorf("request failed: %w", doErr)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxRemoteErrorBody))

		return fmt.Errorf("%w: status %d: %s", ErrRemoteRequest, resp.StatusCode, string(snippet))
	}

	decodeErr := json.NewDecoder(resp.Body).Decode(target)
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return nil
}

// exportedFiles collects the export task's files ordered by the page number in their
// names. Names without a number keep their relative order.
func exportedFiles(job *remoteJob) []remoteFile {
	var files []remoteFile

	for _, task := range job.Tasks {
		if task.Name == exportTaskName && task.Result != nil {
			files = append(files, task.Result.Files...)
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return pageNumberOf(files[i].Filename) < pageNumberOf(files[j].Filename)
	})

	return files
}

func pageNumberOf(filename string) int {
	match := trailingNumber.FindStringSubmatch(filename)
	if match == nil {
		return 0
	}

	number, convErr := strconv.Atoi(match[1])
	if convErr != nil {
		return 0
	}

	return number
}

func failedTaskMessage(job *remoteJob) string {
	for _, task := range job.Tasks {
		if task.Status == jobStatusError {
			return fmt.Sprintf("task %s: %s", task.Name, task.Message)
		}
	}

	return "job " + job.ID
}
