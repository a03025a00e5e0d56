package service

import (
	"context"
	"fmt"

	"github.com/timmy/cropguard/internal/domain"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/metrics"
	"github.com/timmy/cropguard/internal/notify"
)

// ContactStore persists contact messages.
type ContactStore interface {
	Create(ctx context.Context, msg *domain.ContactMessage) error
}

// ContactRequest is a contact form submission.
type ContactRequest struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactResult is returned after a submission is stored.
type ContactResult struct {
	Message              string `json:"message"`
	WhatsAppNotification string `json:"whatsapp_notification"`
}

// ContactConfig holds the contact form settings.
type ContactConfig struct {
	DefaultSubject string
	WhatsApp       string
}

// ContactService stores contact messages and notifies the maintainers.
type ContactService struct {
	contacts ContactStore
	notifier notify.Notifier
	metrics  *metrics.Metrics
	cfg      ContactConfig
}

// NewContactService creates a new contact service. A nil notifier disables notifications.
func NewContactService(contacts ContactStore, notifier notify.Notifier, m *metrics.Metrics, cfg ContactConfig) *ContactService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &ContactService{contacts: contacts, notifier: notifier, metrics: m, cfg: cfg}
}

// Submit stores the message, then attempts a notification. Notification
// failure is logged and does not fail the submission.
func (s *ContactService) Submit(ctx context.Context, req *ContactRequest) (*ContactResult, error) {
	subject := req.Subject
	if subject == "" {
		subject = s.cfg.DefaultSubject
	}

	msg := &domain.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: subject,
		Message: req.Message,
	}
	if err := s.contacts.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}

	title := "CropGuard AI Contact: " + subject
	body := fmt.Sprintf("New contact: %s (%s): %s", msg.Name, msg.Email, msg.Message)
	notified := true
	if err := s.notifier.Notify(ctx, title, body); err != nil {
		notified = false
		logger.FromContext(ctx).WithError(err).Error("Failed to send contact notification")
	}
	s.metrics.RecordContact(notified)

	return &ContactResult{
		Message:              "Contact form submitted successfully!",
		WhatsAppNotification: notify.WhatsAppURL(s.cfg.WhatsApp, msg.Name, msg.Email, msg.Message),
	}, nil
}
