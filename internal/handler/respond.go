package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/model"
	authsvc "tasktracker/internal/service/auth"
	tasksvc "tasktracker/internal/service/task"
	"tasktracker/pkg/logger"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// getUserID reads the authenticated user, answering 401 when absent.
func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	id, ok := v.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

// pathID parses an :id segment. Non-numeric ids do not match any row.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

func validationBody(field, message string) gin.H {
	return gin.H{"errors": gin.H{field: []string{message}}}
}

// respondError maps domain errors to status codes. Anything unrecognised
// is logged and answered with 500.
func respondError(c *gin.Context, base *zap.Logger, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, validationBody(ve.Field, ve.Message))
	case errors.Is(err, model.ErrTaskNotFound),
		errors.Is(err, model.ErrTagNotFound),
		errors.Is(err, tasksvc.ErrPageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrTagExists):
		c.JSON(http.StatusBadRequest, validationBody("name", "Tag with this Name or Slug already exists."))
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), base).Error("Request failed",
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
