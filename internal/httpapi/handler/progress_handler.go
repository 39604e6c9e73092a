package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"booktracker/internal/httpapi/dto"
	"booktracker/internal/httpapi/middleware"
	"booktracker/internal/httpapi/service"

	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	progressService service.ProgressService
}

func NewProgressHandler(progressService service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// RegisterRoutes registers the progress-related routes
func (h *ProgressHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Upsert)
	rg.DELETE("/:id", h.Delete)
}

// List returns the caller's progress rows, most recently updated first, each
// annotated with its derived percentage.
func (h *ProgressHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.progressService.List(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]dto.ProgressResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.FromProgressModel(row))
	}
	c.JSON(http.StatusOK, items)
}

func (h *ProgressHandler) Upsert(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req dto.UpsertProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	progress, err := h.progressService.Upsert(ctx, userID, req.ToInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPageOutOfRange), errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update progress"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.FromProgressModel(*progress))
}

func (h *ProgressHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	progressID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid progress id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.progressService.DetachProgress(ctx, userID, progressID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "progress not found"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "not your progress"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete progress"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "progress deleted",
		"deleted_progress_id": progressID,
	})
}
