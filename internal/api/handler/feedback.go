package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/service"
)

// FeedbackHandler handles user feedback on predictions.
type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// feedbackRequest uses pointers so a present zero or false passes "required".
type feedbackRequest struct {
	PredictionID *int64 `json:"prediction_id" binding:"required"`
	Rating       *int   `json:"rating" binding:"required"`
	IsCorrect    *bool  `json:"is_correct" binding:"required"`
	Comment      string `json:"comment"`
}

// Submit handles POST /feedback.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var body feedbackRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	err := h.feedbackService.Submit(c.Request.Context(), &service.FeedbackRequest{
		PredictionID: *body.PredictionID,
		Rating:       *body.Rating,
		IsCorrect:    *body.IsCorrect,
		Comment:      body.Comment,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Feedback submitted successfully"})
	case errors.Is(err, domain.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Prediction not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save feedback"})
	}
}
