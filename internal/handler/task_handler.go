package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	"tasktracker/internal/service/export"
	tasksvc "tasktracker/internal/service/task"
	"tasktracker/pkg/logger"
)

type TaskHandler struct {
	tasks    *tasksvc.Service
	exporter *export.Exporter
	logger   *zap.Logger
}

func NewTaskHandler(tasks *tasksvc.Service, exporter *export.Exporter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:    tasks,
		exporter: exporter,
		logger:   logger,
	}
}

// createTaskRequest defaults an absent priority to Normal; an explicit
// value, including 0, is validated.
type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    *int    `json:"priority"`
	DueDate     string  `json:"due_date"`
	TagIDs      []int64 `json:"tag_ids"`
}

// patchTaskRequest leaves absent fields untouched. due_date may be null
// or "" to clear it.
type patchTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Status      *string         `json:"status"`
	Priority    *int            `json:"priority"`
	DueDate     json.RawMessage `json:"due_date"`
	TagIDs      *[]int64        `json:"tag_ids"`
}

func filterFromQuery(c *gin.Context) model.TaskFilter {
	return model.ParseTaskFilter(c.Query("q"), c.Query("status"), c.Query("priority"))
}

// List handles GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, err := h.tasks.ListPage(c.Request.Context(), userID, filterFromQuery(c), c.Query("page"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":        newTaskViews(page.Tasks, h.tasks.Today()),
		"page":         page.Number,
		"num_pages":    page.NumPages,
		"total":        page.Total,
		"has_next":     page.HasNext,
		"has_previous": page.HasPrevious,
		"statuses":     statusChoices(),
	})
}

// Create handles POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var priority *model.Priority
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		priority = &p
	}

	t, err := h.tasks.CreateTask(c.Request.Context(), userID, tasksvc.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.Status(req.Status),
		Priority:    priority,
		DueDate:     due,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Task created!",
		"task":    newTaskView(t, h.tasks.Today()),
	})
}

// Get handles GET /tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.tasks.GetTask(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newTaskView(t, h.tasks.Today()))
}

// Update handles PATCH /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req patchTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	in := tasksvc.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		TagIDs:      req.TagIDs,
	}
	if req.Status != nil {
		st := model.Status(*req.Status)
		in.Status = &st
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		in.Priority = &p
	}
	if len(req.DueDate) > 0 {
		in.DueDateSet = true
		if string(req.DueDate) != "null" {
			var s string
			if err := json.Unmarshal(req.DueDate, &s); err != nil {
				respondError(c, h.logger, invalidDate())
				return
			}
			due, err := parseDueDate(s)
			if err != nil {
				respondError(c, h.logger, err)
				return
			}
			in.DueDate = due
		}
	}

	t, err := h.tasks.UpdateTask(c.Request.Context(), userID, id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task updated!",
		"task":    newTaskView(t, h.tasks.Today()),
	})
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted!"})
}

// Complete handles POST /tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	outcome, err := h.tasks.CompleteTask(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Task completed!"
	if outcome == tasksvc.OutcomeAlreadyDone {
		message = "Task is already done"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"outcome": outcome.String(),
		"task_id": id,
	})
}

// Export handles GET /tasks/export
func (h *TaskHandler) Export(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	rows, err := h.exporter.ExportTasks(c.Request.Context(), userID, filterFromQuery(c), &buf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	logger.WithTrace(c.Request.Context(), h.logger).Debug("Serving task export",
		zap.Int64("user_id", userID),
		zap.Int("rows", rows),
		zap.Int("bytes", buf.Len()),
	)
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, invalidDate()
	}
	return &d, nil
}

func invalidDate() error {
	return &model.ValidationError{Field: "due_date", Message: "Enter a valid date."}
}

func statusChoices() []gin.H {
	choices := make([]gin.H, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		choices = append(choices, gin.H{"value": string(s), "label": s.Label()})
	}
	return choices
}
