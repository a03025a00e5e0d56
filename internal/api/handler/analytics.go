package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/service"
)

// AnalyticsHandler handles the read-side endpoints over stored predictions.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// History handles GET /history?limit&offset&model_type.
func (h *AnalyticsHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(domain.DefaultHistoryLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	entries, err := h.analyticsService.History(c.Request.Context(), domain.HistoryQuery{
		Limit:     limit,
		Offset:    offset,
		ModelType: domain.ParseModelKind(c.Query("model_type")),
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Analytics handles GET /analytics.
func (h *AnalyticsHandler) Analytics(c *gin.Context) {
	result, err := h.analyticsService.Analytics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats handles GET /stats.
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	result, err := h.analyticsService.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve stats"})
		return
	}
	c.JSON(http.StatusOK, result)
}
