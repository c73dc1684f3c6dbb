package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tasktracker/internal/model"
)

type stubLister struct {
	tasks  []model.Task
	err    error
	gotID  int64
	gotFlt model.TaskFilter
}

func (s *stubLister) ListTasks(_ context.Context, userID int64, f model.TaskFilter) ([]model.Task, error) {
	s.gotID = userID
	s.gotFlt = f
	return s.tasks, s.err
}

func readRows(t *testing.T, data []byte) (*excelize.File, [][]string) {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	return f, rows
}

func TestExportTasks_EmptyIsHeaderOnly(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	exp := NewExporter(&stubLister{}, time.UTC, zap.NewNop())

	n, err := exp.ExportTasks(context.Background(), 1, model.TaskFilter{}, &buf)
	if err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0", n)
	}

	f, rows := readRows(t, buf.Bytes())
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
	want := []string{"ID", "Title", "Status", "Priority", "Due date", "Completed at", "Tags", "Created", "Updated"}
	for i, h := range want {
		if rows[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
}

func TestExportTasks_Rows(t *testing.T) {
	t.Parallel()

	due := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2025, 3, 10, 14, 5, 9, 0, time.UTC)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	lister := &stubLister{tasks: []model.Task{
		{
			ID:          12,
			OwnerID:     1,
			Title:       "Ship release",
			Status:      model.StatusDone,
			Priority:    model.PriorityHigh,
			DueDate:     &due,
			CompletedAt: &completed,
			Tags:        []model.Tag{{ID: 2, Name: "home"}, {ID: 1, Name: "work"}},
			CreatedAt:   created,
			UpdatedAt:   completed,
		},
		{
			ID:        13,
			OwnerID:   1,
			Title:     "Plain",
			Status:    model.StatusInProgress,
			Priority:  model.PriorityLow,
			Tags:      []model.Tag{},
			CreatedAt: created,
			UpdatedAt: created,
		},
	}}

	var buf bytes.Buffer
	exp := NewExporter(lister, time.UTC, zap.NewNop())
	f := model.ParseTaskFilter("ship", "", "")
	n, err := exp.ExportTasks(context.Background(), 1, f, &buf)
	if err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	if lister.gotID != 1 || lister.gotFlt.Query != "ship" {
		t.Fatalf("filter not forwarded: %d %+v", lister.gotID, lister.gotFlt)
	}

	file, rows := readRows(t, buf.Bytes())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := []string{"12", "Ship release", "Done", "High", "2025-03-20", "2025-03-10 14:05:09", "home, work", "03/01/2025 09:00", "03/10/2025 14:05"}
	for i, v := range first {
		if rows[1][i] != v {
			t.Fatalf("row 1 col %d = %q, want %q", i, rows[1][i], v)
		}
	}

	second := rows[2]
	if second[2] != "In progress" || second[3] != "Low" || second[4] != "" || second[5] != "" {
		t.Fatalf("unexpected second row: %q", second)
	}

	for _, col := range []string{"A", "E", "I"} {
		width, err := file.GetColWidth(SheetName, col)
		if err != nil {
			t.Fatalf("GetColWidth(%s): %v", col, err)
		}
		if width != columnWidth {
			t.Fatalf("column %s width = %v, want %d", col, width, columnWidth)
		}
	}
}

func TestExportTasks_LocalZone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	stamp := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	lister := &stubLister{tasks: []model.Task{{ID: 1, Title: "x", Status: model.StatusNew, Priority: model.PriorityNormal, CreatedAt: stamp, UpdatedAt: stamp}}}

	var buf bytes.Buffer
	if _, err := NewExporter(lister, loc, zap.NewNop()).ExportTasks(context.Background(), 1, model.TaskFilter{}, &buf); err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}
	_, rows := readRows(t, buf.Bytes())
	if got := rows[1][7]; got != "03/02/2025 01:30" {
		t.Fatalf("created = %q, want local time", got)
	}
}

func TestExportTasks_ListError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	var buf bytes.Buffer
	_, err := NewExporter(&stubLister{err: boom}, time.UTC, zap.NewNop()).
		ExportTasks(context.Background(), 1, model.TaskFilter{}, &buf)
	if !errors.Is(err, boom) {
		t.Fatalf("expected list error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("wrote %d bytes on failure", buf.Len())
	}
}
