package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/pkg/metrics"
)

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer logs and counts statements slower than threshold.
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewSlowQueryTracer uses 100ms when threshold is zero.
func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), sql: data.SQL})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	took := time.Since(start.at)
	if took <= t.slowThreshold {
		return
	}

	t.logger.Warn("slow-query",
		zap.String("sql", truncateSQL(start.sql, 200)),
		zap.Duration("took", took),
		zap.String("command_tag", data.CommandTag.String()),
	)

	command := "unknown"
	if data.CommandTag.String() != "" {
		switch {
		case data.CommandTag.Select():
			command = "select"
		case data.CommandTag.Insert():
			command = "insert"
		case data.CommandTag.Update():
			command = "update"
		case data.CommandTag.Delete():
			command = "delete"
		}
	}
	metrics.IncrementSlowQuery(command, took)
}

func truncateSQL(sql string, limit int) string {
	if len(sql) <= limit {
		return sql
	}
	return sql[:limit] + "..."
}
