package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	tagsvc "tasktracker/internal/service/tag"
)

type TagHandler struct {
	tags   *tagsvc.Service
	logger *zap.Logger
}

func NewTagHandler(tags *tagsvc.Service, logger *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

type createTagRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// List handles GET /tags?search=
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// Create handles POST /tags (admin only)
func (h *TagHandler) Create(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), req.Name, req.Slug)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// Delete handles DELETE /tags/:id (admin only)
func (h *TagHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.tags.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted"})
}
