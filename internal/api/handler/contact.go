package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/cropguard/internal/service"
)

// ContactHandler handles contact form submissions.
type ContactHandler struct {
	contactService *service.ContactService
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(contactService *service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// Submit handles POST /contact.
func (h *ContactHandler) Submit(c *gin.Context) {
	var body contactRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: name, email, message"})
		return
	}

	result, err := h.contactService.Submit(c.Request.Context(), &service.ContactRequest{
		Name:    body.Name,
		Email:   body.Email,
		Subject: body.Subject,
		Message: body.Message,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit contact form"})
		return
	}
	c.JSON(http.StatusOK, result)
}
