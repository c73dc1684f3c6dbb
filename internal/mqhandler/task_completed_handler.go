package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "tasktracker/contracts/mq"
	"tasktracker/internal/model"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
)

const auditHandlerName = "task_completed_audit"

type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, key string) bool
	Release(ctx context.Context, handler string, key string)
}

type AuditStore interface {
	Insert(ctx context.Context, e *model.AuditEvent) (bool, error)
}

// TaskCompletedAuditHandler persists one audit row per task.completed event.
type TaskCompletedAuditHandler struct {
	dedup  Deduper
	audit  AuditStore
	logger *zap.Logger
}

func NewTaskCompletedAuditHandler(dedup Deduper, audit AuditStore, logger *zap.Logger) *TaskCompletedAuditHandler {
	return &TaskCompletedAuditHandler{
		dedup:  dedup,
		audit:  audit,
		logger: logger,
	}
}

// Handle is idempotent: Redis drops most redeliveries and the unique
// event_id column drops the rest.
func (h *TaskCompletedAuditHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.TaskCompletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		metrics.IncrementAuditEvent("malformed")
		log.Error("Failed to unmarshal task completed payload", zap.Error(err))
		// Redelivering cannot fix a malformed body.
		return nil
	}
	eventID, err := uuid.Parse(p.EventID)
	if err != nil || p.TaskID == 0 {
		metrics.IncrementAuditEvent("malformed")
		log.Error("Task completed payload has invalid ids", zap.String("event_id", p.EventID), zap.Int64("task_id", p.TaskID))
		return nil
	}
	p.EventID = eventID.String()

	if !h.dedup.AcquireOnce(ctx, auditHandlerName, p.EventID) {
		metrics.IncrementAuditEvent("duplicate")
		return nil
	}

	inserted, err := h.audit.Insert(ctx, &model.AuditEvent{
		EventID:    p.EventID,
		EventType:  mqcontracts.RoutingKeyTaskCompleted,
		TaskID:     p.TaskID,
		OwnerID:    p.OwnerID,
		Title:      p.Title,
		OccurredAt: p.CompletedAt,
	})
	if err != nil {
		h.dedup.Release(ctx, auditHandlerName, p.EventID)
		metrics.IncrementAuditEvent("failed")
		return fmt.Errorf("record audit event %s: %w", p.EventID, err)
	}
	if !inserted {
		metrics.IncrementAuditEvent("duplicate")
		log.Debug("Audit event already recorded", zap.String("event_id", p.EventID))
		return nil
	}

	metrics.IncrementAuditEvent("recorded")
	log.Info("Audit event recorded",
		zap.String("event_id", p.EventID),
		zap.Int64("task_id", p.TaskID),
		zap.Int64("owner_id", p.OwnerID),
	)
	return nil
}
