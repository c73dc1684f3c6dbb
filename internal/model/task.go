package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the stored code of a task's workflow state.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var statusLabels = map[Status]string{
	StatusNew:        "New",
	StatusInProgress: "In progress",
	StatusDone:       "Done",
}

// Statuses lists the valid codes in display order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusDone}

// ParseStatus accepts only the three stored codes.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := statusLabels[st]
	return st, ok
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the human-readable text; unknown codes render as themselves.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "Low",
	PriorityNormal: "Normal",
	PriorityHigh:   "High",
}

func (p Priority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return ""
}

const (
	TitleMaxLen          = 120
	DefaultShortTextSize = 80
	DateLayout           = "2006-01-02"
)

type Task struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"` // date only, midnight UTC
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Tags        []Tag      `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsOverdue reports whether an unfinished task's due date lies before today.
// today must come from Today.
func (t *Task) IsOverdue(today time.Time) bool {
	return t.Status != StatusDone && t.DueDate != nil && t.DueDate.Before(today)
}

// DaysLeft is the signed number of days until the due date, or nil.
func (t *Task) DaysLeft(today time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	// Unix seconds rather than Sub: a Duration saturates after ~292 years.
	days := int((t.DueDate.Unix() - today.Unix()) / 86400)
	return &days
}

// ShortText trims the description and cuts it to limit runes, ending in "...".
// A non-positive limit yields an empty string.
func (t *Task) ShortText(limit int) string {
	if limit <= 0 {
		return ""
	}
	text := strings.TrimSpace(t.Description)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "..."
}

// TagNames returns the tag names in their loaded order.
func (t *Task) TagNames() []string {
	names := make([]string, 0, len(t.Tags))
	for _, tag := range t.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// Today is the calendar date of now in loc, as midnight UTC so it compares
// directly with stored due dates.
func Today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
