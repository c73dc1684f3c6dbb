package handler

import (
	"time"

	"tasktracker/internal/model"
)

type taskView struct {
	ID            int64       `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Status        string      `json:"status"`
	StatusLabel   string      `json:"status_label"`
	Priority      int         `json:"priority"`
	PriorityLabel string      `json:"priority_label"`
	DueDate       *string     `json:"due_date"`
	CompletedAt   *time.Time  `json:"completed_at"`
	Tags          []model.Tag `json:"tags"`
	IsOverdue     bool        `json:"is_overdue"`
	DaysLeft      *int        `json:"days_left"`
	ShortText     string      `json:"short_text"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func newTaskView(t *model.Task, today time.Time) taskView {
	var due *string
	if t.DueDate != nil {
		s := t.DueDate.Format(model.DateLayout)
		due = &s
	}
	tags := t.Tags
	if tags == nil {
		tags = []model.Tag{}
	}

	return taskView{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		StatusLabel:   t.Status.Label(),
		Priority:      int(t.Priority),
		PriorityLabel: t.Priority.Label(),
		DueDate:       due,
		CompletedAt:   t.CompletedAt,
		Tags:          tags,
		IsOverdue:     t.IsOverdue(today),
		DaysLeft:      t.DaysLeft(today),
		ShortText:     t.ShortText(model.DefaultShortTextSize),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func newTaskViews(tasks []model.Task, today time.Time) []taskView {
	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, newTaskView(&tasks[i], today))
	}
	return views
}
