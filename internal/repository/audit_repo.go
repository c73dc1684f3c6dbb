package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tasktracker/internal/model"
)

type AuditRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewAuditRepository(db *pgxpool.Pool, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Insert stores e unless an event with the same EventID already exists.
// It reports whether a row was written.
func (r *AuditRepository) Insert(ctx context.Context, e *model.AuditEvent) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO audit_events (event_id, event_type, task_id, owner_id, title, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (event_id) DO NOTHING
    `,
		e.EventID,
		e.EventType,
		e.TaskID,
		e.OwnerID,
		e.Title,
		e.OccurredAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert audit event",
			zap.Error(err),
			zap.String("event_id", e.EventID),
			zap.Int64("task_id", e.TaskID),
		)
		return false, fmt.Errorf("insert audit event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
