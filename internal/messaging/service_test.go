package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arenaleads/leadpipe/internal/greenapi"
	"github.com/arenaleads/leadpipe/internal/models"
	"github.com/arenaleads/leadpipe/internal/twiliowhatsapp"
	"github.com/arenaleads/leadpipe/internal/whatsapp"
)

func TestRenderButtonList(t *testing.T) {
	buttons := []models.Button{
		{ID: "tickets", Label: "כרטיסים"},
		{ID: "package", Label: "חבילה"},
	}
	got := renderButtonList("בחר אפשרות", buttons)
	if !strings.Contains(got, "1. כרטיסים") || !strings.Contains(got, "2. חבילה") {
		t.Errorf("numbered list missing options: %q", got)
	}
	if !strings.HasPrefix(got, "בחר אפשרות") {
		t.Errorf("body not preserved: %q", got)
	}

	if got := renderButtonList("plain", nil); got != "plain" {
		t.Errorf("expected body unchanged without buttons, got %q", got)
	}
}

func TestGreenAPIServiceCanonicalization(t *testing.T) {
	svc := NewGreenAPIService(greenapi.NewMockClient())

	got, err := svc.ValidateAndCanonicalizeRecipient("972501234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "972501234567@c.us" {
		t.Errorf("expected chat ID suffix appended, got %q", got)
	}

	got, err = svc.ValidateAndCanonicalizeRecipient("972501234567@c.us")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "972501234567@c.us" {
		t.Errorf("expected chat ID kept as-is, got %q", got)
	}

	if _, err := svc.ValidateAndCanonicalizeRecipient(""); err == nil {
		t.Error("expected error for empty recipient")
	}
	if _, err := svc.ValidateAndCanonicalizeRecipient("123"); err == nil {
		t.Error("expected error for short recipient")
	}
}

func TestGreenAPIServiceButtonFallback(t *testing.T) {
	client := greenapi.NewMockClient()
	svc := NewGreenAPIService(client)
	buttons := []models.Button{{ID: "urgent", Label: "דחוף"}}

	if err := svc.SendTextWithButtons(context.Background(), "972501234567@c.us", "האם דחוף?", buttons); err != nil {
		t.Fatalf("SendTextWithButtons failed: %v", err)
	}
	if len(client.Messages) != 1 || len(client.Messages[0].Buttons) != 1 {
		t.Fatalf("expected one button message, got %+v", client.Messages)
	}
}

// failingButtonClient rejects SendButtons but accepts SendMessage, mimicking
// a Green API instance without button support.
type failingButtonClient struct {
	greenapi.MockClient
}

func (f *failingButtonClient) SendButtons(ctx context.Context, chatID string, text string, buttons []models.Button) error {
	return errors.New("buttons not available on this instance")
}

func TestGreenAPIServiceFallbackToNumberedList(t *testing.T) {
	client := &failingButtonClient{}
	svc := NewGreenAPIService(client)
	buttons := []models.Button{
		{ID: "new_order", Label: "הזמנה חדשה"},
		{ID: "existing_order", Label: "הזמנה קיימת"},
	}

	if err := svc.SendTextWithButtons(context.Background(), "972501234567@c.us", "הזמנה קיימת או הזמנה חדשה?", buttons); err != nil {
		t.Fatalf("SendTextWithButtons failed: %v", err)
	}
	if len(client.Messages) != 1 {
		t.Fatalf("expected one fallback message, got %d", len(client.Messages))
	}
	if !strings.Contains(client.Messages[0].Text, "1. הזמנה חדשה") {
		t.Errorf("fallback text missing numbered list: %q", client.Messages[0].Text)
	}
}

func TestWhatsAppServiceCanonicalization(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient())

	got, err := svc.ValidateAndCanonicalizeRecipient("972501234567@c.us")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "972501234567" {
		t.Errorf("expected bare digits, got %q", got)
	}

	if _, err := svc.ValidateAndCanonicalizeRecipient("abc"); err == nil {
		t.Error("expected error for recipient without digits")
	}
}

func TestWhatsAppServiceSendWithButtons(t *testing.T) {
	client := whatsapp.NewMockClient()
	svc := NewWhatsAppService(client)
	buttons := []models.Button{{ID: "tickets", Label: "כרטיסים"}}

	if err := svc.SendTextWithButtons(context.Background(), "972501234567", "בחר", buttons); err != nil {
		t.Fatalf("SendTextWithButtons failed: %v", err)
	}
	if len(client.Sent) != 1 || !strings.Contains(client.Sent[0], "1. כרטיסים") {
		t.Errorf("expected numbered list rendering, got %+v", client.Sent)
	}
}

func TestTwilioServiceCanonicalization(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())

	got, err := svc.ValidateAndCanonicalizeRecipient("972-50-123-4567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+972501234567" {
		t.Errorf("expected E.164 form, got %q", got)
	}
}

func TestTwilioServiceSendText(t *testing.T) {
	client := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(client)

	if err := svc.SendText(context.Background(), "972501234567@c.us", "שלום"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if len(client.SentMessages) != 1 || client.SentMessages[0].To != "+972501234567" {
		t.Errorf("unexpected sent messages %+v", client.SentMessages)
	}
}
