package events

import "github.com/book-expert/logger"

// MessageSink exposes messageSink for tests.
type MessageSink = messageSink

// NewPublisherForTest builds a publisher on top of a fake connection.
func NewPublisherForTest(conn MessageSink, subject string, log *logger.Logger) *NATSPublisher {
	return newPublisher(conn, subject, log)
}
