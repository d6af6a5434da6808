package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/signbridge/backend/internal/classifier"
	"github.com/signbridge/backend/internal/model"
	"github.com/signbridge/backend/internal/repository"
)

// ClassifyHandler handles HTTP requests for frame classification.
type ClassifyHandler struct {
	supervisor *classifier.Supervisor
	history    *repository.ClassificationRepository
}

// NewClassifyHandler creates a new ClassifyHandler. The history repository
// is optional; with nil, results are not recorded.
func NewClassifyHandler(supervisor *classifier.Supervisor, history *repository.ClassificationRepository) *ClassifyHandler {
	return &ClassifyHandler{
		supervisor: supervisor,
		history:    history,
	}
}

// ClassifyRequest represents the request body for classifying a frame.
type ClassifyRequest struct {
	Image string `json:"image"`
}

// Classify handles POST /api/asl/classify - classifies a single still frame.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	if req.Image == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", model.ErrImageRequired.Error())
		return
	}

	started := time.Now()
	result, err := h.supervisor.Classify(c.Request.Context(), req.Image)
	if err != nil {
		var classErr *model.ClassificationError
		switch {
		case errors.As(err, &classErr):
			sendError(c, http.StatusInternalServerError, "CLASSIFICATION_FAILED", classErr.Error())
		case errors.Is(err, model.ErrClassifyTimeout):
			sendError(c, http.StatusInternalServerError, "CLASSIFICATION_TIMEOUT", err.Error())
		case errors.Is(err, model.ErrWorkerExited):
			sendError(c, http.StatusInternalServerError, "WORKER_EXITED", err.Error())
		default:
			sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to classify frame: "+err.Error())
		}
		return
	}

	h.record(result, time.Since(started))

	c.JSON(http.StatusOK, result)
}

// record persists the result to the history, best-effort. The history is a
// request log; classification succeeds even when recording does not.
func (h *ClassifyHandler) record(result model.Classification, latency time.Duration) {
	if h.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.history.Record(ctx, result.Letter, result.Confidence, latency.Milliseconds()); err != nil {
		log.Printf("Failed to record classification: %v", err)
	}
}

// History handles GET /api/asl/history - returns recent classifications.
func (h *ClassifyHandler) History(c *gin.Context) {
	limit := repository.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []*model.ClassificationRecord{}})
		return
	}

	entries, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load history: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// RegisterRoutes registers the classification routes on a Gin router group.
func (h *ClassifyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/asl/classify", h.Classify)
	rg.GET("/asl/history", h.History)
}
