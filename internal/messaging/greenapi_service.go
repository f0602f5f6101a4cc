package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arenaleads/leadpipe/internal/greenapi"
	"github.com/arenaleads/leadpipe/internal/models"
	"github.com/arenaleads/leadpipe/internal/util"
)

// ChatIDSuffix is the Green API chat identifier suffix for individual chats.
const ChatIDSuffix = "@c.us"

// GreenAPIService implements Service using the Green API gateway.
type GreenAPIService struct {
	client greenapi.Sender
}

// NewGreenAPIService creates a new GreenAPIService wrapping the given sender.
func NewGreenAPIService(client greenapi.Sender) *GreenAPIService {
	slog.Debug("GreenAPIService created")
	return &GreenAPIService{client: client}
}

// ValidateAndCanonicalizeRecipient accepts either a bare phone number or a
// full chat identifier and returns the Green API chat ID form.
func (s *GreenAPIService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	if strings.Contains(recipient, "@") {
		return recipient, nil
	}
	digits := util.Digits(recipient)
	if len(digits) < MinRecipientDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", recipient, MinRecipientDigits)
	}
	canonical := digits + ChatIDSuffix
	if canonical != recipient {
		slog.Debug("GreenAPIService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendText sends a plain text message through Green API.
func (s *GreenAPIService) SendText(ctx context.Context, to string, body string) error {
	chatID, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("GreenAPIService SendText validation error", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, chatID, body); err != nil {
		slog.Error("GreenAPIService SendText error", "error", err, "to", chatID)
		return err
	}
	slog.Info("GreenAPIService message sent", "to", chatID)
	return nil
}

// SendTextWithButtons sends a message with reply buttons through Green API.
// When the button endpoint rejects the request the message is re-sent as
// plain text with the options rendered as a numbered list.
func (s *GreenAPIService) SendTextWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	chatID, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("GreenAPIService SendTextWithButtons validation error", "error", err, "to", to)
		return err
	}
	if len(buttons) == 0 {
		return s.SendText(ctx, chatID, body)
	}

	err = s.client.SendButtons(ctx, chatID, body, buttons)
	if err == nil {
		slog.Info("GreenAPIService button message sent", "to", chatID, "buttons", len(buttons))
		return nil
	}
	slog.Warn("GreenAPIService button send failed, falling back to numbered list", "error", err, "to", chatID)

	if err := s.client.SendMessage(ctx, chatID, renderButtonList(body, buttons)); err != nil {
		slog.Error("GreenAPIService fallback send error", "error", err, "to", chatID)
		return err
	}
	slog.Info("GreenAPIService fallback message sent", "to", chatID)
	return nil
}
