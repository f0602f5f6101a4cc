package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/arenaleads/leadpipe/internal/models"
	"github.com/arenaleads/leadpipe/internal/util"
)

// MockService implements Service in memory for tests.
type MockService struct {
	mu      sync.Mutex
	Sent    []MockSent
	SendErr error
}

// MockSent is a recorded outbound message.
type MockSent struct {
	To      string
	Body    string
	Buttons []models.Button
}

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	digits := util.Digits(recipient)
	if digits == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	return digits, nil
}

func (m *MockService) SendText(ctx context.Context, to string, body string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MockSent{To: to, Body: body})
	return nil
}

func (m *MockService) SendTextWithButtons(ctx context.Context, to string, body string, buttons []models.Button) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MockSent{To: to, Body: body, Buttons: buttons})
	return nil
}

// LastSent returns the most recent recorded message, or nil when none exist.
func (m *MockService) LastSent() *MockSent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}
