// Package notify delivers contact form notifications to external services.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/timmy/cropguard/internal/config"
)

// Notifier sends a titled message.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Noop discards notifications.
type Noop struct{}

// Notify implements Notifier.
func (Noop) Notify(context.Context, string, string) error { return nil }

// ShoutrrrNotifier fans a message out to every configured shoutrrr URL
// (smtp://, telegram://, discord://, generic+https:// ...).
type ShoutrrrNotifier struct {
	sender *router.ServiceRouter
}

// New builds a notifier from configuration. Disabled or URL-less configs yield Noop.
func New(cfg *config.NotifyConfig) (Notifier, error) {
	if !cfg.Enabled || len(cfg.URLs) == 0 {
		return Noop{}, nil
	}
	return NewShoutrrr(cfg)
}

// NewShoutrrr validates the URLs and creates a sender for them.
func NewShoutrrr(cfg *config.NotifyConfig) (*ShoutrrrNotifier, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("at least one notification URL is required")
	}
	sender, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, fmt.Errorf("invalid notification URL: %w", err)
	}
	if cfg.Timeout > 0 {
		sender.Timeout = cfg.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrNotifier{sender: sender}, nil
}

// Notify sends body with title to every URL and returns the joined failures.
func (n *ShoutrrrNotifier) Notify(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	return errors.Join(n.sender.Send(body, &params)...)
}

const whatsAppPreviewLen = 100

// WhatsAppURL returns a click-to-chat link to number prefilled with a summary
// of the contact message. The message is cut to its first 100 characters.
func WhatsAppURL(number, name, email, message string) string {
	phone := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	preview := []rune(message)
	if len(preview) > whatsAppPreviewLen {
		preview = preview[:whatsAppPreviewLen]
	}
	text := fmt.Sprintf("New Contact: %s (%s): %s...", name, email, string(preview))

	q := url.Values{}
	q.Set("phone", phone)
	q.Set("text", text)
	return "https://api.whatsapp.com/send?" + q.Encode()
}
