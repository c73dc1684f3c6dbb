package model

import "time"

// AuditEvent is one persisted record of a task lifecycle event.
type AuditEvent struct {
	ID         int64
	EventID    string
	EventType  string
	TaskID     int64
	OwnerID    int64
	Title      string
	OccurredAt time.Time
	RecordedAt time.Time
}
