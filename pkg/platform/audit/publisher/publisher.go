// Package publisher hands audit events to a store, either inline or through a
// bounded asynchronous buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit when the async buffer has no room. The
// event is dropped.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher is safe for concurrent use.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics

	bufferSize int
	mu         sync.RWMutex
	closed     bool
	inbox      chan audit.Event
	done       chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox,
			worker.WithLogger(p.logger),
			worker.WithErrorHook(p.metrics.IncPersistFailures),
		)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps the event and hands it to the store. Cancellation of ctx does
// not drop the event. In async mode it never blocks: a full buffer drops the
// event and returns ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		if err := p.store.Append(context.WithoutCancel(ctx), event); err != nil {
			p.metrics.IncPersistFailures()
			return err
		}
		p.metrics.IncEmitted(string(event.Category))
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrBufferFull
	}
	select {
	case p.inbox <- event:
		p.metrics.IncEmitted(string(event.Category))
		return nil
	default:
		p.metrics.IncDropped()
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
		return ErrBufferFull
	}
}

// Close stops accepting events and, in async mode, waits for the buffer to
// drain.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}
