package pdfrender_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-images-api/internal/pdfrender"
)

// fakeCloudConvert emulates the jobs API: the job stays "processing" for
// pendingPolls polls and then reports finalStatus.
type fakeCloudConvert struct {
	server       *httptest.Server
	finalStatus  string
	pendingPolls int32
	polls        atomic.Int32
	pageCount    int
}

func newFakeCloudConvert(t *testing.T, pageCount int, pendingPolls int32, finalStatus string) *fakeCloudConvert {
	t.Helper()

	fake := &fakeCloudConvert{
		finalStatus:  finalStatus,
		pendingPolls: pendingPolls,
		pageCount:    pageCount,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/jobs", fake.createJob)
	mux.HandleFunc("GET /v2/jobs/{id}", fake.getJob)
	mux.HandleFunc("GET /files/{name}", fake.getFile)

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeCloudConvert) createJob(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-key" {
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	var body map[string]map[string]map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	if body["tasks"]["import-pdf"]["operation"] != "import/base64" {
		w.WriteHeader(http.StatusUnprocessableEntity)

		return
	}

	w.WriteHeader(http.StatusCreated)
	_, _ = fmt.Fprint(w, `{"data":{"id":"job-1","status":"waiting"}}`)
}

func (f *fakeCloudConvert) getJob(w http.ResponseWriter, r *http.Request) {
	poll := f.polls.Add(1)

	status := "processing"
	if poll > f.pendingPolls {
		status = f.finalStatus
	}

	tasks := []map[string]any{
		{"name": "import-pdf", "status": "finished"},
		{"name": "convert-pages", "status": status, "message": "Conversion engine crashed"},
	}

	if status == "finished" {
		files := make([]map[string]string, 0, f.pageCount)
		// Reverse order: the converter must sort by page number.
		for page := f.pageCount; page >= 1; page-- {
			name := fmt.Sprintf("input-%d.png", page)
			files = append(files, map[string]string{
				"filename": name,
				"url":      f.server.URL + "/files/" + name,
			})
		}

		tasks = append(tasks, map[string]any{
			"name":   "export-pages",
			"status": "finished",
			"result": map[string]any{"files": files},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"id": r.PathValue("id"), "status": status, "tasks": tasks},
	})
}

func (f *fakeCloudConvert) getFile(w http.ResponseWriter, r *http.Request) {
	page := pdfrender.PageNumberOfForTest(r.PathValue("name"))

	img := image.NewRGBA(image.Rect(0, 0, page*10, 10))
	for y := range 10 {
		for x := range page * 10 {
			img.Set(x, y, color.Black)
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func newCloudConvertConverter(t *testing.T, baseURL string, maxAttempts int) *pdfrender.CloudConvertConverter {
	t.Helper()

	opts := &pdfrender.Options{
		CloudConvert: pdfrender.CloudConvertOptions{
			APIKey:       "test-key",
			BaseURL:      baseURL,
			PollInterval: time.Millisecond,
			MaxAttempts:  maxAttempts,
		},
	}
	pdfrender.ApplyDefaultOptionsForTest(opts)

	return pdfrender.NewCloudConvertConverter(opts, newTestLogger(t))
}

func TestCloudConvertConverter_Convert(t *testing.T) {
	t.Parallel()

	fake := newFakeCloudConvert(t, 3, 2, "finished")
	converter := newCloudConvertConverter(t, fake.server.URL, 5)

	pages, err := converter.Convert(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.Len(t, pages, 3)

	for index, page := range pages {
		assert.Equal(t, index+1, page.Number)
		assert.Equal(t, (index+1)*10, page.Width)
		assert.Equal(t, fmt.Sprintf("page-%d.png", index+1), page.Filename())
	}

	assert.Equal(t, int32(3), fake.polls.Load())
}

func TestCloudConvertConverter_PollBudgetExhausted(t *testing.T) {
	t.Parallel()

	fake := newFakeCloudConvert(t, 1, 100, "finished")
	converter := newCloudConvertConverter(t, fake.server.URL, 3)

	_, err := converter.Convert(context.Background(), []byte("%PDF-1.4"))
	require.ErrorIs(t, err, pdfrender.ErrPollAttemptsExhausted)
	assert.Equal(t, int32(3), fake.polls.Load())
}

func TestCloudConvertConverter_JobError(t *testing.T) {
	t.Parallel()

	fake := newFakeCloudConvert(t, 1, 0, "error")
	converter := newCloudConvertConverter(t, fake.server.URL, 3)

	_, err := converter.Convert(context.Background(), []byte("%PDF-1.4"))
	require.ErrorIs(t, err, pdfrender.ErrRemoteJobFailed)
	assert.Contains(t, err.Error(), "Conversion engine crashed")
}

func TestCloudConvertConverter_Unauthorized(t *testing.T) {
	t.Parallel()

	fake := newFakeCloudConvert(t, 1, 0, "finished")

	opts := &pdfrender.Options{
		CloudConvert: pdfrender.CloudConvertOptions{APIKey: "wrong", BaseURL: fake.server.URL},
	}
	pdfrender.ApplyDefaultOptionsForTest(opts)
	converter := pdfrender.NewCloudConvertConverter(opts, newTestLogger(t))

	_, err := converter.Convert(context.Background(), []byte("%PDF-1.4"))
	require.ErrorIs(t, err, pdfrender.ErrRemoteRequest)
}

func TestCloudConvertConverter_JobWithoutID(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/jobs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"status":"waiting"}}`))
	})
	mux.HandleFunc("GET /v2/jobs/", func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	converter := newCloudConvertConverter(t, server.URL, 3)

	_, err := converter.Convert(context.Background(), []byte("%PDF-1.4"))
	require.ErrorIs(t, err, pdfrender.ErrRemoteRequest)
	assert.Contains(t, err.Error(), "without an id")
	assert.Zero(t, polls.Load())
}

func TestCloudConvertConverter_CanceledWhilePolling(t *testing.T) {
	t.Parallel()

	fake := newFakeCloudConvert(t, 1, 100, "finished")

	opts := &pdfrender.Options{
		CloudConvert: pdfrender.CloudConvertOptions{
			APIKey:       "test-key",
			BaseURL:      fake.server.URL,
			PollInterval: time.Hour,
			MaxAttempts:  5,
		},
	}
	pdfrender.ApplyDefaultOptionsForTest(opts)
	converter := pdfrender.NewCloudConvertConverter(opts, newTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := converter.Convert(ctx, []byte("%PDF-1.4"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPageNumberOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 12, pdfrender.PageNumberOfForTest("input-12.png"))
	assert.Equal(t, 1, pdfrender.PageNumberOfForTest("doc2-1.jpg"))
	assert.Equal(t, 0, pdfrender.PageNumberOfForTest("input.png"))
}
