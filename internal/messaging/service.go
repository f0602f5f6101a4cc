// Package messaging provides pluggable WhatsApp delivery channels for
// LeadPipe. The dispatcher talks to the Service interface; the concrete
// implementations relay through Green API, a whatsmeow session, or Twilio.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/arenaleads/leadpipe/internal/models"
)

// Constants for messaging service configuration
const (
	// MinRecipientDigits is the minimum number of digits a recipient phone
	// number must contain after canonicalization
	MinRecipientDigits = 6
)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier into the form the underlying channel expects.
	// This allows each service to implement its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a plain text message to a recipient.
	SendText(ctx context.Context, to string, body string) error

	// SendTextWithButtons sends a text message with reply buttons. Channels
	// that cannot render buttons present them as a numbered list instead.
	SendTextWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error
}

// renderButtonList appends the button labels to the body as a numbered list.
// Used by channels without native button support and as the Green API
// fallback when the button endpoint rejects the request.
func renderButtonList(body string, buttons []models.Button) string {
	if len(buttons) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	for i, btn := range buttons {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, btn.Label))
	}
	return b.String()
}
