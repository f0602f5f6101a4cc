package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arenaleads/leadpipe/internal/models"
	"github.com/arenaleads/leadpipe/internal/twiliowhatsapp"
	"github.com/arenaleads/leadpipe/internal/util"
)

// TwilioService implements Service using the Twilio WhatsApp API.
type TwilioService struct {
	client twiliowhatsapp.Sender
}

// NewTwilioService creates a new TwilioService wrapping the given sender.
func NewTwilioService(client twiliowhatsapp.Sender) *TwilioService {
	slog.Debug("TwilioService created")
	return &TwilioService{client: client}
}

// ValidateAndCanonicalizeRecipient converts the recipient into the E.164
// form Twilio expects.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	if at := strings.Index(recipient, "@"); at >= 0 {
		recipient = recipient[:at]
	}
	digits := util.Digits(recipient)
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(digits) < MinRecipientDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", digits, MinRecipientDigits)
	}
	canonical := "+" + digits
	if canonical != recipient {
		slog.Debug("TwilioService canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// SendText sends a plain text message via Twilio.
func (s *TwilioService) SendText(ctx context.Context, to string, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendText validation error", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, canonical, body); err != nil {
		slog.Error("TwilioService SendText error", "error", err, "to", canonical)
		return err
	}
	slog.Info("TwilioService message sent", "to", canonical)
	return nil
}

// SendTextWithButtons sends the message with options rendered as a numbered
// list; the Twilio WhatsApp API has no reply-button support in this SDK.
func (s *TwilioService) SendTextWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	return s.SendText(ctx, to, renderButtonList(body, buttons))
}
