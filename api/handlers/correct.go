package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/signbridge/backend/internal/model"
	"github.com/signbridge/backend/internal/textcorrect"
)

// CorrectHandler proxies transcription text to the correction upstream.
// It keeps no state of its own.
type CorrectHandler struct {
	corrector textcorrect.Corrector
}

// NewCorrectHandler creates a new CorrectHandler.
func NewCorrectHandler(corrector textcorrect.Corrector) *CorrectHandler {
	return &CorrectHandler{corrector: corrector}
}

// CorrectRequest represents the request body for text correction.
type CorrectRequest struct {
	Text string `json:"text"`
}

// CorrectResponse represents the corrected text.
type CorrectResponse struct {
	Corrected string `json:"corrected"`
}

// Correct handles POST /api/text/correct.
func (h *CorrectHandler) Correct(c *gin.Context) {
	var req CorrectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", model.ErrTextRequired.Error())
		return
	}

	corrected, err := h.corrector.Correct(c.Request.Context(), req.Text)
	if err != nil {
		sendError(c, http.StatusBadGateway, "CORRECTION_FAILED", "Text correction failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, CorrectResponse{Corrected: corrected})
}

// RegisterRoutes registers the correction route on a Gin router group.
func (h *CorrectHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/text/correct", h.Correct)
}
