package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"tasktracker/pkg/circuitbreaker"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/trace"
)

// Store is the part of Repository the dispatcher uses.
type Store interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, id int64) error
	MarkForRetry(ctx context.Context, id int64, delay time.Duration) error
}

type Publisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher moves pending outbox events to the broker. Events are never
// given up on: a failed publish is retried with a growing delay, capped at
// maxBackoff.
type Dispatcher struct {
	store      Store
	publisher  Publisher
	logger     *zap.Logger
	interval   time.Duration
	batchSize  int
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewDispatcher(store Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		logger:     logger,
		interval:   time.Second,
		batchSize:  100,
		backoff:    5 * time.Second,
		maxBackoff: time.Minute,
	}
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

func (d *Dispatcher) WithBatchSize(n int) *Dispatcher {
	d.batchSize = n
	return d
}

func (d *Dispatcher) WithBackoff(step, maxDelay time.Duration) *Dispatcher {
	d.backoff = step
	d.maxBackoff = maxDelay
	return d
}

// Start polls until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.dispatchPending(ctx)
		}
	}
}

// dispatchPending publishes one batch and returns how many events went out.
// The batch stops at the first failure so later events do not overtake it.
func (d *Dispatcher) dispatchPending(ctx context.Context) int {
	events, err := d.store.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	d.logger.Debug("Dispatching pending events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		if err := d.publish(ctx, event); err != nil {
			d.handleFailure(ctx, event, err)
			return sent
		}

		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			// The event will be published again; consumers dedup by event id.
			d.logger.Error("Failed to mark event as sent",
				zap.Int64("outbox_id", event.ID),
				zap.Error(err),
			)
			return sent
		}
		sent++
	}
	return sent
}

func (d *Dispatcher) publish(ctx context.Context, event *Event) error {
	ctx = withPayloadTrace(ctx, event.Payload)
	return d.publisher.PublishWithContext(ctx, event.RoutingKey, event.Payload)
}

func (d *Dispatcher) handleFailure(ctx context.Context, event *Event, err error) {
	// An open breaker means no attempt was made.
	if errors.Is(err, circuitbreaker.ErrOpen) {
		d.logger.Debug("Broker unavailable, dispatch paused", zap.Int64("outbox_id", event.ID))
		return
	}
	metrics.IncrementPublishFailure(event.RoutingKey)

	delay := d.retryDelay(event.RetryCount + 1)
	d.logger.Warn("Failed to publish outbox event",
		zap.Int64("outbox_id", event.ID),
		zap.String("routing_key", event.RoutingKey),
		zap.Int("attempt", event.RetryCount+1),
		zap.Duration("retry_in", delay),
		zap.Error(err),
	)
	if err := d.store.MarkForRetry(ctx, event.ID, delay); err != nil {
		d.logger.Error("Failed to schedule event retry",
			zap.Int64("outbox_id", event.ID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt) * d.backoff
	if delay > d.maxBackoff || delay <= 0 {
		return d.maxBackoff
	}
	return delay
}

// withPayloadTrace carries the trace id recorded with the event into the
// message headers.
func withPayloadTrace(ctx context.Context, payload json.RawMessage) context.Context {
	var p struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, p.TraceID)
}
