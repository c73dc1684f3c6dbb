package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/pkg/otel"
	"tasktracker/pkg/outbox"
)

const taskColumns = `id, owner_id, title, description, status, priority, due_date, completed_at, created_at, updated_at`

type TaskRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, outbox: outbox.NewRepository(db), logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t        model.Task
		status   string
		priority int
	)
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&t.DueDate,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	t.Tags = []model.Tag{}
	return t, err
}

// escapeLike makes every character of s match literally inside ILIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildListQuery always restricts to ownerID; the text query matches title
// OR description, the remaining filters are ANDed.
func buildListQuery(ownerID int64, f model.TaskFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + taskColumns + " FROM tasks WHERE owner_id = $1")
	args := []any{ownerID}

	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		n := len(args)
		fmt.Fprintf(&sb, " AND (title ILIKE $%d OR description ILIKE $%d)", n, n)
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if f.Priority != nil {
		args = append(args, int(*f.Priority))
		fmt.Fprintf(&sb, " AND priority = $%d", len(args))
	}

	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	return sb.String(), args
}

// List returns the owner's tasks matching f, newest first, with tags loaded.
func (r *TaskRepository) List(ctx context.Context, ownerID int64, f model.TaskFilter) (tasks []model.Task, err error) {
	ctx, span := otel.DBSpan(ctx, "select", "tasks")
	defer func() { otel.EndDBSpan(span, err) }()

	query, args := buildListQuery(ownerID, f)
	r.logger.Debug("Listing tasks",
		zap.Int64("owner_id", ownerID),
		zap.Int("arg_count", len(args)),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err), zap.Int64("owner_id", ownerID))
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks = []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err), zap.Int64("owner_id", ownerID))
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	if err := r.loadTags(ctx, tasks); err != nil {
		return nil, err
	}

	r.logger.Debug("Tasks listed",
		zap.Int64("owner_id", ownerID),
		zap.Int("count", len(tasks)),
	)
	return tasks, nil
}

// loadTags fills Tags for every task, ordered by tag name then id.
func (r *TaskRepository) loadTags(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]int64, len(tasks))
	index := make(map[int64]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}

	rows, err := r.db.Query(ctx, `
        SELECT tt.task_id, t.id, t.name, t.slug
        FROM task_tags tt
        JOIN tags t ON t.id = tt.tag_id
        WHERE tt.task_id = ANY($1)
        ORDER BY t.name, t.id
    `, ids)
	if err != nil {
		r.logger.Error("Failed to query task tags", zap.Error(err))
		return fmt.Errorf("query task tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID int64
		var tag model.Tag
		if err := rows.Scan(&taskID, &tag.ID, &tag.Name, &tag.Slug); err != nil {
			return fmt.Errorf("scan task tag: %w", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Tags = append(tasks[i].Tags, tag)
		}
	}
	return rows.Err()
}

// GetByID loads a task regardless of owner; callers apply the owner guard.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	row := r.db.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTaskNotFound
		}
		r.logger.Error("Failed to get task", zap.Error(err), zap.Int64("task_id", id))
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}

	tasks := []model.Task{t}
	if err := r.loadTags(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// Insert writes t and its tag links in one transaction and sets t.ID.
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.Int64("owner_id", t.OwnerID),
		zap.String("title", t.Title),
		zap.String("status", string(t.Status)),
	)

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO tasks (owner_id, title, description, status, priority, due_date, completed_at, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
            RETURNING id
        `,
			t.OwnerID,
			t.Title,
			t.Description,
			string(t.Status),
			int(t.Priority),
			t.DueDate,
			t.CompletedAt,
			t.CreatedAt,
			t.UpdatedAt,
		).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return replaceTaskTags(ctx, tx, t.ID, t.Tags)
	})
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err), zap.Int64("owner_id", t.OwnerID))
		return err
	}

	r.logger.Info("Task inserted successfully",
		zap.Int64("task_id", t.ID),
		zap.Int64("owner_id", t.OwnerID),
	)
	return nil
}

// Update writes the editable fields and updated_at. Owner, created_at and
// completed_at are never touched here. Tag links are replaced only when
// replaceTags is set.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task, replaceTags bool) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE tasks
            SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, updated_at = $6
            WHERE id = $7 AND owner_id = $8
        `,
			t.Title,
			t.Description,
			string(t.Status),
			int(t.Priority),
			t.DueDate,
			t.UpdatedAt,
			t.ID,
			t.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrTaskNotFound
		}
		if !replaceTags {
			return nil
		}
		return replaceTaskTags(ctx, tx, t.ID, t.Tags)
	})
	if err != nil && !errors.Is(err, model.ErrTaskNotFound) {
		r.logger.Error("Failed to update task", zap.Error(err), zap.Int64("task_id", t.ID))
	}
	return err
}

func replaceTaskTags(ctx context.Context, tx pgx.Tx, taskID int64, tags []model.Tag) error {
	if _, err := tx.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	ids := make([]int64, len(tags))
	for i, tag := range tags {
		ids[i] = tag.ID
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO task_tags (task_id, tag_id)
        SELECT $1, unnest($2::bigint[])
        ON CONFLICT DO NOTHING
    `, taskID, ids)
	if err != nil {
		return fmt.Errorf("insert task tags: %w", err)
	}
	return nil
}

// Delete removes the owner's task; its tag links go with it.
func (r *TaskRepository) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.Error(err), zap.Int64("task_id", id))
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	r.logger.Info("Task deleted", zap.Int64("task_id", id), zap.Int64("owner_id", ownerID))
	return nil
}

// MarkCompleted writes only status, completed_at and updated_at so that a
// concurrent edit of any other column survives. The outbox event commits
// with the update or not at all.
func (r *TaskRepository) MarkCompleted(ctx context.Context, t *model.Task, event *outbox.Event) (err error) {
	ctx, span := otel.DBSpan(ctx, "update", "tasks")
	defer func() { otel.EndDBSpan(span, err) }()

	r.logger.Debug("Marking task as completed", zap.Int64("task_id", t.ID))
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE tasks
            SET status = $1, completed_at = $2, updated_at = $3
            WHERE id = $4 AND owner_id = $5
        `,
			string(t.Status),
			t.CompletedAt,
			t.UpdatedAt,
			t.ID,
			t.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("complete task %d: %w", t.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return model.ErrTaskNotFound
		}
		return r.outbox.InsertEvent(ctx, tx, event)
	})
	if err != nil && !errors.Is(err, model.ErrTaskNotFound) {
		r.logger.Error("Failed to mark task as completed", zap.Error(err), zap.Int64("task_id", t.ID))
	}
	return err
}
