package mq

import "time"

// Routing keys on the "events" exchange.
const (
	RoutingKeyTaskCompleted = "task.completed"
)

// TaskCompletedPayload is written to the outbox once per successful
// completion. EventID is a UUID and the dedup key on the consumer side; a
// redelivered event keeps it.
type TaskCompletedPayload struct {
	EventID     string    `json:"event_id"`
	TaskID      int64     `json:"task_id"`
	OwnerID     int64     `json:"owner_id"`
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completed_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}
