package notify

import (
	"context"
	"time"

	"github.com/tphakala/audiophile/internal/errors"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/observability/metrics"
)

// Publisher delivers events to one sink.
type Publisher interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Publish delivers ev. Implementations must not retain ev.
	Publish(ctx context.Context, ev *Event) error
	// Close releases the sink connection.
	Close() error
}

// GetLogger returns the notify module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notify")
}

// Multi fans an event out to several publishers. A failing sink never
// blocks the others; errors are logged, counted and joined.
type Multi struct {
	publishers []Publisher
	metrics    *metrics.NotifyMetrics
	timeout    time.Duration
	log        logger.Logger
}

// NewMulti returns a fan-out over publishers. m may be nil.
func NewMulti(m *metrics.NotifyMetrics, publishers ...Publisher) *Multi {
	return &Multi{
		publishers: publishers,
		metrics:    m,
		timeout:    10 * time.Second,
		log:        GetLogger(),
	}
}

// Name returns "multi".
func (p *Multi) Name() string { return "multi" }

// Len returns the number of sinks.
func (p *Multi) Len() int { return len(p.publishers) }

// Add appends a publisher.
func (p *Multi) Add(pub Publisher) {
	p.publishers = append(p.publishers, pub)
}

// Publish delivers ev to every sink in order.
func (p *Multi) Publish(ctx context.Context, ev *Event) error {
	var errs []error
	for _, pub := range p.publishers {
		pctx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		err := pub.Publish(pctx, ev)
		cancel()
		if err != nil {
			p.metrics.RecordError(pub.Name())
			p.log.Warn("event delivery failed",
				logger.String("sink", pub.Name()),
				logger.String("event", string(ev.Type)),
				logger.Error(err))
			errs = append(errs, errors.New(err).
				Component("notify").
				Category(errors.CategoryNotification).
				Context("sink", pub.Name()).
				Build())
			continue
		}
		p.log.Trace("event delivered",
			logger.String("sink", pub.Name()),
			logger.String("event", string(ev.Type)),
			logger.Duration("latency", time.Since(start)))
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the errors.
func (p *Multi) Close() error {
	var errs []error
	for _, pub := range p.publishers {
		if err := pub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FuncPublisher adapts a function to Publisher. Used for in-process
// subscribers such as cache invalidation.
type FuncPublisher struct {
	name string
	fn   func(ctx context.Context, ev *Event) error
}

// NewFuncPublisher wraps fn.
func NewFuncPublisher(name string, fn func(ctx context.Context, ev *Event) error) *FuncPublisher {
	return &FuncPublisher{name: name, fn: fn}
}

// Name returns the configured name.
func (f *FuncPublisher) Name() string { return f.name }

// Publish calls the wrapped function.
func (f *FuncPublisher) Publish(ctx context.Context, ev *Event) error { return f.fn(ctx, ev) }

// Close is a no-op.
func (f *FuncPublisher) Close() error { return nil }
