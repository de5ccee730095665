// Package publisher provides the fire-and-forget audit publisher used by the
// transition orchestrator. Emission never blocks the caller and its failure
// is never surfaced to the business operation: when the buffer is full the
// event is dropped and counted.
package publisher

import (
	"context"
	"log/slog"
	"time"

	audit "larch/pkg/platform/audit"
)

// Publisher buffers events on a channel for the worker to drain.
type Publisher struct {
	events  chan audit.Event
	logger  *slog.Logger
	dropped func()
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for drop reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithDropCounter registers a callback invoked once per dropped event,
// typically a Prometheus counter increment.
func WithDropCounter(fn func()) Option {
	return func(p *Publisher) {
		p.dropped = fn
	}
}

// New creates a publisher with the given buffer size.
func New(buffer int, opts ...Option) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		events: make(chan audit.Event, buffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish enqueues an event. The timestamp is stamped here if the emitter
// left it zero. Never blocks; drops when the buffer is full.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = event.Name.Category()
	}
	select {
	case p.events <- event:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit event dropped, buffer full",
				"event", string(event.Name),
				"application_id", event.ApplicationID,
			)
		}
	}
}

// Events exposes the channel for the worker.
func (p *Publisher) Events() <-chan audit.Event {
	return p.events
}
