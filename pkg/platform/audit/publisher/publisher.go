package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "valid8/pkg/domain"
	audit "valid8/pkg/platform/audit"
	"valid8/pkg/requestcontext"
)

// Store persists audit events locally.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

// Sink receives events for external fan-out (e.g. Kafka). Sink failures
// never fail the emitting operation.
type Sink interface {
	Publish(ctx context.Context, event audit.Event) error
}

// Publisher persists audit events and optionally forwards them to a sink.
// In sync mode Emit writes inline; with an async buffer it enqueues and a
// single worker drains, dropping events when the buffer is full rather than
// blocking domain logic.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger

	ch     chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.ch = make(chan audit.Event, size)
		}
	}
}

// WithSink attaches an external sink.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

// WithLogger attaches a logger for drop/sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.ch != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. The category and timestamp are filled in when the
// caller left them empty; the timestamp comes from the request-scoped clock
// so every event of one request carries the same instant.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.CategoryOf(audit.AuditEvent(event.Action))
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if p.ch == nil {
		return p.write(ctx, event)
	}

	select {
	case p.ch <- event:
	default:
		// Buffer full: drop rather than block the domain operation.
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		}
	}
	return nil
}

// List returns the locally stored events for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close drains any buffered events and stops the worker. Safe to call more
// than once.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.ch != nil {
			close(p.ch)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.ch {
		if err := p.write(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event", "error", err, "action", event.Action)
		}
	}
}

func (p *Publisher) write(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil && p.logger != nil {
			p.logger.Warn("audit sink publish failed", "error", err, "action", event.Action)
		}
	}
	return nil
}
