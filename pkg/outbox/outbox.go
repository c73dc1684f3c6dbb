package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// Event is a message waiting in outbox_events to be published.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   *int64
	RoutingKey    string
	Payload       json.RawMessage
	Status        string
	RetryCount    int
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewEvent encodes payload into a pending event for the given aggregate.
func NewEvent(aggregateType string, aggregateID int64, routingKey string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return &Event{
		AggregateType: aggregateType,
		AggregateID:   &aggregateID,
		RoutingKey:    routingKey,
		Payload:       body,
		Status:        StatusPending,
	}, nil
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertEvent must run in the transaction that changes the aggregate, so the
// event exists exactly when the change commits.
func (r *Repository) InsertEvent(ctx context.Context, tx pgx.Tx, event *Event) error {
	status := event.Status
	if status == "" {
		status = StatusPending
	}

	err := tx.QueryRow(ctx, `
        INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `,
		event.AggregateType,
		event.AggregateID,
		event.RoutingKey,
		event.Payload,
		status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	event.Status = status
	return nil
}

// GetPendingEvents returns due events oldest first.
func (r *Repository) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, aggregate_type, aggregate_id, routing_key, payload, status,
               retry_count, next_retry_at, created_at, updated_at
        FROM outbox_events
        WHERE status = 'pending'
          AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at ASC, id ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.RoutingKey,
			&e.Payload,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkAsSent(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET status = 'sent', updated_at = NOW()
        WHERE id = $1
    `, id); err != nil {
		return fmt.Errorf("mark event %d sent: %w", id, err)
	}
	return nil
}

// MarkForRetry keeps the event pending and hides it from GetPendingEvents
// until delay has passed.
func (r *Repository) MarkForRetry(ctx context.Context, id int64, delay time.Duration) error {
	if _, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET retry_count = retry_count + 1,
            next_retry_at = NOW() + make_interval(secs => $2),
            updated_at = NOW()
        WHERE id = $1
    `, id, delay.Seconds()); err != nil {
		return fmt.Errorf("mark event %d for retry: %w", id, err)
	}
	return nil
}
