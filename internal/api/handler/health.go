package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/timmy/cropguard/internal/classifier"
	"github.com/timmy/cropguard/internal/knowledge"
)

// AppInfo is the static metadata reported by the introspection endpoints.
type AppInfo struct {
	Name            string
	Version         string
	ContactEmail    string
	ContactWhatsApp string
}

// HealthHandler handles health check and service banner endpoints
type HealthHandler struct {
	registry  *classifier.Registry
	knowledge *knowledge.Resolver
	info      AppInfo
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *classifier.Registry, resolver *knowledge.Resolver, info AppInfo) *HealthHandler {
	return &HealthHandler{registry: registry, knowledge: resolver, info: info}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"models_loaded": h.registry.Availability(),
		"timestamp":     time.Now().UTC(),
		"version":       h.info.Version,
	})
}

// Index handles GET / with the service banner.
func (h *HealthHandler) Index(c *gin.Context) {
	diseases := make(map[string][]string)
	for _, kind := range h.registry.Kinds() {
		diseases[kind.String()+"_model"] = h.knowledge.Labels(kind)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            h.info.Name + " v" + h.info.Version,
		"models_loaded":      h.registry.Availability(),
		"total_classes":      h.registry.ClassCounts(),
		"supported_diseases": diseases,
		"version":            h.info.Version,
		"contact": gin.H{
			"email":    h.info.ContactEmail,
			"whatsapp": h.info.ContactWhatsApp,
		},
	})
}
