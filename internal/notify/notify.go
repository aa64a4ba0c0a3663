// Package notify publishes build completion events.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/apibuilder/internal/logfields"
	"git.home.luguber.info/inful/apibuilder/internal/report"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "apibuilder.build.completed"

// ErrNotConfigured indicates no broker URL was configured.
var ErrNotConfigured = errors.New("notifications not configured")

// Event is the payload published when a build finishes.
type Event struct {
	RunID      string         `json:"run_id"`
	Version    string         `json:"version,omitempty"`
	Revision   string         `json:"revision,omitempty"`
	Mode       string         `json:"mode,omitempty"`
	Outcome    string         `json:"outcome"`
	Units      int            `json:"units"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	DurationMS float64        `json:"duration_ms"`
	Issues     []report.Issue `json:"issues,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// EventFromReport summarizes a finished report.
func EventFromReport(r *report.BuildReport) Event {
	c := r.Counts()
	return Event{
		RunID:      r.RunID,
		Version:    r.Version,
		Revision:   r.Revision,
		Mode:       r.Mode,
		Outcome:    string(r.Outcome),
		Units:      r.Units,
		Succeeded:  c[report.StatusSucceeded],
		Failed:     c[report.StatusFailed],
		Skipped:    c[report.StatusSkipped],
		DurationMS: float64(r.End.Sub(r.Start).Milliseconds()),
		Issues:     r.Issues,
		Timestamp:  r.End,
	}
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NoopPublisher drops every event (default when notifications are not configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close()                               {}

// Options configures the NATS publisher.
type Options struct {
	URL     string
	Subject string
	// JetStream publishes with acknowledgement to a stream bound to Subject.
	JetStream bool
	Timeout   time.Duration
}

type publishFunc func(ctx context.Context, subject string, data []byte) error

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	publish publishFunc
}

// NewNATSPublisher connects to the configured server.
func NewNATSPublisher(opts Options) (*NATSPublisher, error) {
	if opts.URL == "" {
		return nil, ErrNotConfigured
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	conn, err := nats.Connect(opts.URL, nats.Name("apibuilder"), nats.Timeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p := &NATSPublisher{conn: conn, subject: opts.Subject}
	if opts.JetStream {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		p.publish = func(ctx context.Context, subject string, data []byte) error {
			_, err := js.Publish(ctx, subject, data)
			return err
		}
	} else {
		p.publish = func(_ context.Context, subject string, data []byte) error {
			if err := conn.Publish(subject, data); err != nil {
				return err
			}
			return conn.FlushTimeout(opts.Timeout)
		}
	}

	slog.Info("NATS publisher initialized", slog.String("url", opts.URL), slog.String("subject", opts.Subject), slog.Bool("jetstream", opts.JetStream))
	return p, nil
}

// Publish sends e as JSON.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	slog.Debug("Published build event", logfields.RunID(e.RunID), logfields.Outcome(e.Outcome), slog.String("subject", p.subject))
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
