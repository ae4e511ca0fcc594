package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectLinkAdded      = "linkledger.links.added"
	SubjectReportExported = "linkledger.reports.exported"

	eventStreamSubjects = "linkledger.>"
	eventStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)

// EventPublisher publishes audit events for downstream takedown tracking.
type EventPublisher interface {
	Publish(subject string, event any) error
}

// LinkAddedEvent is published after a link is stored.
type LinkAddedEvent struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportExportedEvent is published after a report is rendered.
type ReportExportedEvent struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	FromDate  time.Time `json:"from_date"`
	ToDate    time.Time `json:"to_date"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func newEventID() string {
	return uuid.New().String()
}

// JetStreamPublisher publishes events to NATS JetStream.
type JetStreamPublisher struct {
	js nats.JetStreamContext
}

// NewJetStreamPublisher creates a publisher on the given JetStream context.
func NewJetStreamPublisher(js nats.JetStreamContext) *JetStreamPublisher {
	return &JetStreamPublisher{js: js}
}

// EnsureStream creates the event stream unless it already exists.
func (p *JetStreamPublisher) EnsureStream(name string) error {
	_, err := p.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{eventStreamSubjects},
		MaxBytes: eventStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Publish encodes event as JSON and publishes it on subject.
func (p *JetStreamPublisher) Publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(subject, data)
	return err
}
