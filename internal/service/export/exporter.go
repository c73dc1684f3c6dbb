package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
)

const (
	SheetName   = "Tasks"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	FileName    = "tasks.xlsx"

	columnWidth     = 20
	completedLayout = "2006-01-02 15:04:05"
	stampLayout     = "01/02/2006 15:04"
)

var Header = []any{"ID", "Title", "Status", "Priority", "Due date", "Completed at", "Tags", "Created", "Updated"}

// TaskLister is satisfied by task.Service.
type TaskLister interface {
	ListTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, error)
}

type Exporter struct {
	tasks  TaskLister
	loc    *time.Location
	logger *zap.Logger
}

func NewExporter(tasks TaskLister, loc *time.Location, logger *zap.Logger) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{tasks: tasks, loc: loc, logger: logger}
}

// ExportTasks writes the user's filtered tasks as an xlsx workbook to w and
// returns the number of data rows.
func (e *Exporter) ExportTasks(ctx context.Context, userID int64, f model.TaskFilter, w io.Writer) (int, error) {
	log := logger.WithTrace(ctx, e.logger)

	tasks, err := e.tasks.ListTasks(ctx, userID, f)
	if err != nil {
		return 0, err
	}

	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			log.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	if err := file.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for i, t := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		row := e.row(&t)
		if err := file.SetSheetRow(SheetName, cell, &row); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Header))
	if err != nil {
		return 0, err
	}
	if err := file.SetColWidth(SheetName, "A", lastCol, columnWidth); err != nil {
		return 0, fmt.Errorf("set column width: %w", err)
	}

	if err := file.Write(w); err != nil {
		log.Error("Failed to write workbook", zap.Error(err), zap.Int64("user_id", userID))
		return 0, fmt.Errorf("write workbook: %w", err)
	}

	metrics.RecordTaskExport(len(tasks))
	log.Info("Tasks exported", zap.Int64("user_id", userID), zap.Int("rows", len(tasks)))
	return len(tasks), nil
}

func (e *Exporter) row(t *model.Task) []any {
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Format(model.DateLayout)
	}
	completed := ""
	if t.CompletedAt != nil {
		completed = t.CompletedAt.In(e.loc).Format(completedLayout)
	}

	return []any{
		t.ID,
		t.Title,
		t.Status.Label(),
		t.Priority.Label(),
		due,
		completed,
		strings.Join(t.TagNames(), ", "),
		t.CreatedAt.In(e.loc).Format(stampLayout),
		t.UpdatedAt.In(e.loc).Format(stampLayout),
	}
}
