package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arenaleads/leadpipe/internal/models"
	"github.com/arenaleads/leadpipe/internal/util"
	"github.com/arenaleads/leadpipe/internal/whatsapp"
)

// WhatsAppService implements Service using the Whatsmeow-based whatsapp client.
type WhatsAppService struct {
	client whatsapp.Sender
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	slog.Debug("WhatsAppService created")
	return &WhatsAppService{client: client}
}

// ValidateAndCanonicalizeRecipient reduces the recipient to the bare digit
// string whatsmeow expects as the JID user part.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	// Chat identifiers arrive as "<digits>@c.us"; keep the user part only.
	if at := strings.Index(recipient, "@"); at >= 0 {
		recipient = recipient[:at]
	}
	canonical := util.Digits(recipient)
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinRecipientDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinRecipientDigits)
	}
	if canonical != recipient {
		slog.Debug("WhatsAppService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendText sends a plain text message over the whatsmeow session.
func (s *WhatsAppService) SendText(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendText validation error", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, canonical, body); err != nil {
		slog.Error("WhatsAppService SendText error", "error", err, "to", canonical)
		return err
	}
	slog.Info("WhatsAppService message sent", "to", canonical)
	return nil
}

// SendTextWithButtons sends the message with options rendered as a numbered
// list; the direct whatsmeow channel does not use interactive buttons.
func (s *WhatsAppService) SendTextWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	return s.SendText(ctx, to, renderButtonList(body, buttons))
}
