// Package events notifies other services about finished conversions over NATS.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ErrNoSubject is returned when a publisher is created without a subject.
var ErrNoSubject = errors.New("nats subject is empty")

const (
	connectTimeout = 5 * time.Second
	clientName     = "pdf-to-images-api"
)

// ConversionEvent is published once a PDF has been rendered to images.
type ConversionEvent struct {
	Header     events.EventHeader `json:"header"`
	Filename   string             `json:"filename"`
	Renderer   string             `json:"renderer"`
	Size       int64              `json:"size"`
	TotalPages int                `json:"totalPages"`
}

// Conversion describes a finished conversion.
type Conversion struct {
	RequestID  string
	Filename   string
	Renderer   string
	Size       int64
	TotalPages int
}

// Publisher is satisfied by NATSPublisher and by test doubles.
type Publisher interface {
	PublishConversion(conversion Conversion) error
	Close() error
}

// messageSink is the part of *nats.Conn the publisher needs.
type messageSink interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes ConversionEvents on a core NATS subject.
type NATSPublisher struct {
	conn    messageSink
	log     *logger.Logger
	subject string
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, log *logger.Logger) (*NATSPublisher, error) {
	if subject == "" {
		return nil, ErrNoSubject
	}

	conn, connErr := nats.Connect(
		url,
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, disconnectErr error) {
			if disconnectErr != nil {
				log.Warn("Disconnected from NATS: %v", disconnectErr)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Reconnected to NATS server at %s", nc.ConnectedUrl())
		}),
	)
	if connErr != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", connErr)
	}

	log.Info("Connected to NATS server at %s", conn.ConnectedUrl())

	return newPublisher(conn, subject, log), nil
}

func newPublisher(conn messageSink, subject string, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, log: log, subject: subject}
}

// PublishConversion marshals and publishes a ConversionEvent.
func (p *NATSPublisher) PublishConversion(conversion Conversion) error {
	event := ConversionEvent{
		Header: events.EventHeader{
			WorkflowID: conversion.RequestID,
			EventID:    uuid.New().String(),
			Timestamp:  time.Now(),
		},
		Filename:   conversion.Filename,
		Renderer:   conversion.Renderer,
		Size:       conversion.Size,
		TotalPages: conversion.TotalPages,
	}

	eventJSON, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal ConversionEvent: %w", marshalErr)
	}

	pubErr := p.conn.Publish(p.subject, eventJSON)
	if pubErr != nil {
		return fmt.Errorf("failed to publish ConversionEvent: %w", pubErr)
	}

	p.log.Info("Published conversion of '%s' (%d pages) on '%s'", conversion.Filename, conversion.TotalPages, p.subject)

	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	drainErr := p.conn.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain NATS connection: %w", drainErr)
	}

	return nil
}
