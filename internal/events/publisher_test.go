package events_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-images-api/internal/events"
)

var errBrokerDown = errors.New("broker down")

type fakeConn struct {
	publishErr error
	subjects   []string
	payloads   [][]byte
	drained    bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}

	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)

	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true

	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func TestNATSPublisher_PublishConversion(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	publisher := events.NewPublisherForTest(conn, "pdf.converted", newTestLogger(t))

	err := publisher.PublishConversion(events.Conversion{
		RequestID:  "req-1",
		Filename:   "book.pdf",
		Renderer:   "fitz",
		Size:       2048,
		TotalPages: 12,
	})
	require.NoError(t, err)
	require.Len(t, conn.payloads, 1)
	assert.Equal(t, "pdf.converted", conn.subjects[0])

	var event events.ConversionEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &event))
	assert.Equal(t, "req-1", event.Header.WorkflowID)
	assert.NotEmpty(t, event.Header.EventID)
	assert.False(t, event.Header.Timestamp.IsZero())
	assert.Equal(t, "book.pdf", event.Filename)
	assert.Equal(t, 12, event.TotalPages)
	assert.Equal(t, int64(2048), event.Size)

	require.NoError(t, publisher.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{publishErr: errBrokerDown}
	publisher := events.NewPublisherForTest(conn, "pdf.converted", newTestLogger(t))

	err := publisher.PublishConversion(events.Conversion{Filename: "book.pdf"})
	require.ErrorIs(t, err, errBrokerDown)
}

func TestConnect_RequiresSubject(t *testing.T) {
	t.Parallel()

	_, err := events.Connect("nats://127.0.0.1:4222", "", newTestLogger(t))
	require.ErrorIs(t, err, events.ErrNoSubject)
}
