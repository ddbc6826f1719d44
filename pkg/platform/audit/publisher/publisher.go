// Package publisher delivers audit events to a store, either synchronously or
// through a buffered background channel drained on Close.
package publisher

import (
	"context"
	"sync"

	"github.com/google/uuid"

	audit "reunite/pkg/platform/audit"
)

// Publisher emits audit events to its store. In async mode Emit enqueues and
// a background goroutine appends; Close drains the queue.
type Publisher struct {
	store audit.Store

	inbox chan audit.Event
	wg    sync.WaitGroup
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with the given queue size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// NewPublisher constructs a Publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers an event. In async mode a full queue falls back to a
// synchronous append rather than dropping the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return p.store.Append(ctx, event)
	}
}

// List returns the events recorded for a case.
func (p *Publisher) List(ctx context.Context, caseID uuid.UUID) ([]audit.Event, error) {
	return p.store.ListByCase(ctx, caseID)
}

// Close stops the background worker after draining queued events.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Background appends get a fresh context; request contexts are gone.
		_ = p.store.Append(context.Background(), event)
	}
}
