package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlowQueryTracer_LogsSlowStatements(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), time.Nanosecond)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "UPDATE tasks SET status = $1"})
	time.Sleep(2 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("UPDATE 1")})

	entries := logs.FilterMessage("slow-query").All()
	if len(entries) != 1 {
		t.Fatalf("expected one slow-query entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["command_tag"] != "UPDATE 1" || !strings.HasPrefix(fields["sql"].(string), "UPDATE tasks") {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestSlowQueryTracer_IgnoresFastStatements(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	tracer := NewSlowQueryTracer(zap.New(core), time.Hour)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	if logs.Len() != 0 {
		t.Fatalf("fast query logged")
	}
}

func TestSlowQueryTracer_MissingStart(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	NewSlowQueryTracer(zap.New(core), time.Nanosecond).
		TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	if logs.Len() != 0 {
		t.Fatalf("end without start logged")
	}
}

func TestTruncateSQL(t *testing.T) {
	t.Parallel()

	if got := truncateSQL("SELECT 1", 200); got != "SELECT 1" {
		t.Fatalf("short sql changed: %q", got)
	}
	if got := truncateSQL(strings.Repeat("x", 10), 4); got != "xxxx..." {
		t.Fatalf("truncateSQL = %q", got)
	}
}
