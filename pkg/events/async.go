package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/pkg/jobs"
)

// AsyncConfig sizes the dispatch queue.
type AsyncConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// Async hands events to a background queue so request handling never waits on
// the broker. Events that cannot be buffered are logged and dropped.
type Async struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsync wraps next with a worker queue. Start must be called before Publish.
func NewAsync(next Publisher, cfg AsyncConfig, logger *zap.Logger) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(Event)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		return next.Publish(ctx, event)
	}
	queue := jobs.NewQueue("events", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &Async{queue: queue, logger: logger}
}

// Start launches the dispatch workers.
func (a *Async) Start(ctx context.Context) { a.queue.Start(ctx) }

// Stop flushes buffered events and stops the workers.
func (a *Async) Stop() { a.queue.Stop() }

// Publish implements Publisher. It never blocks and never fails the caller.
func (a *Async) Publish(_ context.Context, event Event) error {
	if err := a.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: event.Type, Payload: event}); err != nil {
		a.logger.Warn("event dropped", zap.String("type", event.Type), zap.String("event_id", event.ID), zap.Error(err))
	}
	return nil
}
