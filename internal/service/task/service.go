package task

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "tasktracker/contracts/mq"
	"tasktracker/internal/model"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"
	"tasktracker/pkg/outbox"
	"tasktracker/pkg/trace"
)

// PageSize is the number of tasks on one list page.
const PageSize = 4

var ErrPageNotFound = errors.New("invalid page")

// TaskStore is the persistence the service needs. Implemented by
// repository.TaskRepository.
type TaskStore interface {
	List(ctx context.Context, ownerID int64, f model.TaskFilter) ([]model.Task, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Insert(ctx context.Context, t *model.Task) error
	Update(ctx context.Context, t *model.Task, replaceTags bool) error
	Delete(ctx context.Context, id, ownerID int64) error
	// MarkCompleted stores the completion and event in one transaction.
	MarkCompleted(ctx context.Context, t *model.Task, event *outbox.Event) error
}

type TagStore interface {
	FindByIDs(ctx context.Context, ids []int64) ([]model.Tag, error)
}

// Outcome is the result of a completion request that did not fail.
type Outcome int

const (
	OutcomeCompleted Outcome = iota + 1
	OutcomeAlreadyDone
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAlreadyDone:
		return "already_done"
	default:
		return "unknown"
	}
}

type Service struct {
	tasks  TaskStore
	tags   TagStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewService(tasks TaskStore, tags TagStore, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tasks:  tasks,
		tags:   tags,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today is the current calendar date in the configured zone.
func (s *Service) Today() time.Time {
	return model.Today(s.now(), s.loc)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// ValidateDueDate rejects a due date before today unless the task is done.
func ValidateDueDate(due *time.Time, status model.Status, today time.Time) error {
	if due == nil || status == model.StatusDone {
		return nil
	}
	if due.Before(today) {
		return &model.ValidationError{Field: "due_date", Message: "Due date cannot be in the past"}
	}
	return nil
}

// RequireOwner hides tasks of other users behind ErrTaskNotFound.
func RequireOwner(userID int64, t *model.Task) (*model.Task, error) {
	if t == nil || t.OwnerID != userID {
		return nil, model.ErrTaskNotFound
	}
	return t, nil
}

func (s *Service) ListTasks(ctx context.Context, userID int64, f model.TaskFilter) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

type Page struct {
	Tasks       []model.Task
	Number      int
	NumPages    int
	Total       int
	HasNext     bool
	HasPrevious bool
}

// ListPage returns one page of ListTasks. page may be empty (first page),
// a 1-based number or "last".
func (s *Service) ListPage(ctx context.Context, userID int64, f model.TaskFilter, page string) (*Page, error) {
	tasks, err := s.ListTasks(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	numPages := (len(tasks) + PageSize - 1) / PageSize
	if numPages == 0 {
		numPages = 1
	}

	number := 1
	switch page = strings.TrimSpace(page); page {
	case "":
	case "last":
		number = numPages
	default:
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 || n > numPages {
			return nil, ErrPageNotFound
		}
		number = n
	}

	start := (number - 1) * PageSize
	end := min(start+PageSize, len(tasks))

	return &Page{
		Tasks:       tasks[start:end],
		Number:      number,
		NumPages:    numPages,
		Total:       len(tasks),
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}, nil
}

func (s *Service) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return RequireOwner(userID, t)
}

type CreateInput struct {
	Title       string
	Description string
	Status      model.Status    // empty means new
	Priority    *model.Priority // nil means normal
	DueDate     *time.Time
	TagIDs      []int64
}

func (s *Service) CreateTask(ctx context.Context, userID int64, in CreateInput) (*model.Task, error) {
	log := logger.WithTrace(ctx, s.logger)

	status := in.Status
	if status == "" {
		status = model.StatusNew
	}
	priority := model.PriorityNormal
	if in.Priority != nil {
		priority = *in.Priority
	}

	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidChoice("status", string(status))
	}
	if !priority.Valid() {
		return nil, invalidChoice("priority", strconv.Itoa(int(priority)))
	}
	if err := ValidateDueDate(in.DueDate, status, s.Today()); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &model.Task{
		OwnerID:     userID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		Tags:        tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, err
	}

	log.Info("Task created", zap.Int64("task_id", t.ID), zap.Int64("owner_id", userID))
	return t, nil
}

// UpdateInput carries a partial edit. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *model.Status
	Priority    *model.Priority
	// DueDateSet marks DueDate as present; a nil DueDate then clears it.
	DueDateSet bool
	DueDate    *time.Time
	TagIDs     *[]int64
}

func (s *Service) UpdateTask(ctx context.Context, userID, taskID int64, in UpdateInput) (*model.Task, error) {
	log := logger.WithTrace(ctx, s.logger)

	t, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, invalidChoice("status", string(*in.Status))
		}
		t.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, invalidChoice("priority", strconv.Itoa(int(*in.Priority)))
		}
		t.Priority = *in.Priority
	}
	if in.DueDateSet {
		t.DueDate = in.DueDate
	}
	if in.DueDateSet || in.Status != nil {
		if err := ValidateDueDate(t.DueDate, t.Status, s.Today()); err != nil {
			return nil, err
		}
	}
	if in.TagIDs != nil {
		tags, err := s.resolveTags(ctx, *in.TagIDs)
		if err != nil {
			return nil, err
		}
		t.Tags = tags
	}

	t.UpdatedAt = s.now()
	if err := s.tasks.Update(ctx, t, in.TagIDs != nil); err != nil {
		return nil, err
	}

	log.Info("Task updated", zap.Int64("task_id", t.ID), zap.Int64("owner_id", userID))
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, userID, taskID int64) error {
	if _, err := s.GetTask(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID, userID); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Task deleted",
		zap.Int64("task_id", taskID),
		zap.Int64("owner_id", userID),
	)
	return nil
}

// CompleteTask marks the task done. The first completion stamps
// completed_at; repeating it is a no-op reported as OutcomeAlreadyDone.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID int64) (Outcome, error) {
	log := logger.WithTrace(ctx, s.logger)

	t, err := s.GetTask(ctx, userID, taskID)
	if err != nil {
		return 0, err
	}

	if t.Status == model.StatusDone {
		metrics.IncrementTaskCompletion(OutcomeAlreadyDone.String())
		log.Debug("Task already done", zap.Int64("task_id", t.ID))
		return OutcomeAlreadyDone, nil
	}

	now := s.now()
	t.Status = model.StatusDone
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.UpdatedAt = now

	event, err := completedEvent(ctx, t)
	if err != nil {
		return 0, err
	}
	if err := s.tasks.MarkCompleted(ctx, t, event); err != nil {
		return 0, err
	}

	metrics.IncrementTaskCompletion(OutcomeCompleted.String())
	log.Info("Task completed successfully",
		zap.Int64("task_id", t.ID),
		zap.Int64("owner_id", t.OwnerID),
		zap.String("title", t.Title),
	)

	return OutcomeCompleted, nil
}

// completedEvent builds the task.completed outbox event. Its payload is
// fixed at completion time.
func completedEvent(ctx context.Context, t *model.Task) (*outbox.Event, error) {
	payload := mqcontracts.TaskCompletedPayload{
		EventID:     uuid.NewString(),
		TaskID:      t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		CompletedAt: *t.CompletedAt,
		TraceID:     trace.FromContext(ctx),
	}
	return outbox.NewEvent("task", t.ID, mqcontracts.RoutingKeyTaskCompleted, payload)
}

// resolveTags loads the tags for ids, rejecting any unknown id.
func (s *Service) resolveTags(ctx context.Context, ids []int64) ([]model.Tag, error) {
	if len(ids) == 0 {
		return []model.Tag{}, nil
	}

	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	tags, err := s.tags.FindByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	if len(tags) != len(unique) {
		return nil, &model.ValidationError{
			Field:   "tag_ids",
			Message: "Select a valid choice. One of the tags is not one of the available choices.",
		}
	}
	return tags, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &model.ValidationError{Field: "title", Message: "This field is required."}
	}
	if n := utf8.RuneCountInString(title); n > model.TitleMaxLen {
		return "", &model.ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", model.TitleMaxLen, n),
		}
	}
	return title, nil
}

func invalidChoice(field, value string) error {
	return &model.ValidationError{
		Field:   field,
		Message: fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", value),
	}
}
