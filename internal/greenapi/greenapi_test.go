package greenapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arenaleads/leadpipe/internal/models"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Error("expected error when instance ID is missing")
	}
	if _, err := NewClient(WithInstanceID("1101")); err == nil {
		t.Error("expected error when API token is missing")
	}
	if _, err := NewClient(WithInstanceID("1101"), WithAPIToken("tok")); err != nil {
		t.Errorf("expected client with credentials to be created, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(WithInstanceID("1101"), WithAPIToken("tok"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.SendMessage(context.Background(), "972501234567@c.us", "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if gotPath != "/waInstance1101/sendMessage/tok" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotBody.ChatID != "972501234567@c.us" || gotBody.Message != "hello" {
		t.Errorf("unexpected payload %+v", gotBody)
	}
}

func TestSendMessageValidation(t *testing.T) {
	client, err := NewClient(WithInstanceID("1101"), WithAPIToken("tok"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.SendMessage(context.Background(), "", "hello"); err == nil {
		t.Error("expected error for empty chat ID")
	}
	if err := client.SendMessage(context.Background(), "972501234567@c.us", ""); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestSendButtons(t *testing.T) {
	var gotPath string
	var gotBody sendButtonsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(WithInstanceID("1101"), WithAPIToken("tok"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	buttons := []models.Button{
		{ID: "tickets", Label: "כרטיסים"},
		{ID: "package", Label: "חבילה"},
	}
	if err := client.SendButtons(context.Background(), "972501234567@c.us", "choose", buttons); err != nil {
		t.Fatalf("SendButtons failed: %v", err)
	}
	if gotPath != "/waInstance1101/sendButtons/tok" {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if len(gotBody.Buttons) != 2 || gotBody.Buttons[0].ID != "tickets" {
		t.Errorf("unexpected buttons payload %+v", gotBody.Buttons)
	}
}

func TestSendMessageErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance not authorized", http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(WithInstanceID("1101"), WithAPIToken("tok"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := client.SendMessage(context.Background(), "972501234567@c.us", "hello"); err == nil {
		t.Error("expected error for non-2xx response")
	}
}
