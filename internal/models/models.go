// Package models defines the core data structures for LeadPipe.
//
// It includes the conversation state record, the lead record, and the wire
// types shared between the webhook handler, the dialogue engine and the stores.
package models

import (
	"errors"
	"time"
)

// StageType identifies one stage of the intake dialogue state machine.
type StageType string

const (
	// StageIdle is the initial stage; any input triggers the greeting.
	StageIdle StageType = "idle"
	// StageWaitingOrderType waits for "existing order" vs "new order".
	StageWaitingOrderType StageType = "waiting_order_type"
	// StageWaitingPackageOrTickets waits for "package" vs "tickets".
	StageWaitingPackageOrTickets StageType = "waiting_package_or_tickets"
	// StageWaitingTicketsGame waits for a game name, optionally with a quantity.
	StageWaitingTicketsGame StageType = "waiting_tickets_game"
	// StageWaitingTicketsAmount waits for a ticket quantity alone.
	StageWaitingTicketsAmount StageType = "waiting_tickets_amount"
	// StageWaitingPackageDetails collects game(s), people count, phone and notes.
	StageWaitingPackageDetails StageType = "waiting_package_details"
	// StageWaitingUrgencyGeneral waits for "urgent" vs "not urgent".
	StageWaitingUrgencyGeneral StageType = "waiting_urgency_general"
	// StageWaitingGeneralRequest waits for a free-text request.
	StageWaitingGeneralRequest StageType = "waiting_general_request"
	// StageDone is the per-cycle terminal stage; any input resets to idle.
	StageDone StageType = "done"
)

// IsValidStage reports whether the given stage belongs to the dialogue's
// closed stage enumeration. Unknown values trigger the fallback reset.
func IsValidStage(s StageType) bool {
	switch s {
	case StageIdle, StageWaitingOrderType, StageWaitingPackageOrTickets,
		StageWaitingTicketsGame, StageWaitingTicketsAmount, StageWaitingPackageDetails,
		StageWaitingUrgencyGeneral, StageWaitingGeneralRequest, StageDone:
		return true
	default:
		return false
	}
}

// OrderType distinguishes a new order from a follow-up on an existing one.
type OrderType string

const (
	OrderTypeNew      OrderType = "new"
	OrderTypeExisting OrderType = "existing"
)

// RequestType tags which dialogue branch the collected data belongs to.
type RequestType string

const (
	// RequestTypeTickets marks a ticket purchase request (game + quantity).
	RequestTypeTickets RequestType = "tickets"
	// RequestTypePackage marks a full package request (games, people, phone, notes).
	RequestTypePackage RequestType = "package"
	// RequestTypeGeneral marks a free-text or urgency request on an existing order.
	RequestTypeGeneral RequestType = "general"
)

// ConversationData holds the answers collected across dialogue turns.
// The set of meaningful fields is determined by RequestType; fields are only
// ever added during a cycle and are cleared together when the stage resets to
// idle. JSON names match the persisted column layout.
type ConversationData struct {
	OrderType      OrderType   `json:"orderType,omitempty"`
	RequestType    RequestType `json:"requestType,omitempty"`
	TicketsGame    string      `json:"ticketsGame,omitempty"`
	TicketsAmount  int         `json:"ticketsAmount,omitempty"`
	PackageGames   string      `json:"packageGames,omitempty"`
	PackagePeople  string      `json:"packagePeople,omitempty"`
	PhoneNumber    string      `json:"phoneNumber,omitempty"`
	PackageNotes   *string     `json:"packageNotes,omitempty"`
	IsUrgent       *bool       `json:"isUrgent,omitempty"`
	GeneralRequest string      `json:"generalRequest,omitempty"`
}

// IsEmpty reports whether no answer has been collected yet.
func (d ConversationData) IsEmpty() bool {
	return d == ConversationData{}
}

// ConversationState is the persisted dialogue progress for one phone number.
// Exactly one record exists per phone; a missing record is materialized by the
// caller as a fresh idle state with empty data.
type ConversationState struct {
	Phone     string           `json:"phone"`
	Stage     StageType        `json:"stage"`
	Data      ConversationData `json:"data"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewConversationState returns the implicit fresh record for an unseen phone.
func NewConversationState(phone string) ConversationState {
	return ConversationState{Phone: phone, Stage: StageIdle, UpdatedAt: time.Now()}
}

// Lead is an append-only record of one completed intake dialogue.
type Lead struct {
	ID            int64          `json:"id,omitempty"`
	Phone         string         `json:"phone"`
	Game          string         `json:"game"`
	Amount        int            `json:"amount"`
	IsUrgent      bool           `json:"is_urgent"`
	IsNewCustomer bool           `json:"is_new_customer"`
	Raw           map[string]any `json:"raw,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Validation errors shared by the stores and handlers.
var (
	ErrEmptyPhone = errors.New("phone cannot be empty")
	ErrEmptyGame  = errors.New("game cannot be empty")
)

// Validate checks the minimal invariants before a lead is persisted.
func (l *Lead) Validate() error {
	if l.Phone == "" {
		return ErrEmptyPhone
	}
	if l.Game == "" {
		return ErrEmptyGame
	}
	return nil
}

// Button is a quick-reply affordance offered next to a prompt. Button clicks
// arrive back as plain text equal to either the id or the label.
type Button struct {
	ID    string `json:"buttonId"`
	Label string `json:"buttonText"`
}

// InboundWebhook is the Green API webhook body for an incoming message.
// Only the fields LeadPipe consumes are modeled; the gateway sends more.
type InboundWebhook struct {
	SenderData struct {
		ChatID string `json:"chatId"`
		Sender string `json:"sender"`
	} `json:"senderData"`
	MessageData struct {
		TextMessageData *struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData,omitempty"`
		ExtendedTextMessageData *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData,omitempty"`
		ButtonTextData *struct {
			ButtonText string `json:"buttonText"`
		} `json:"buttonTextData,omitempty"`
	} `json:"messageData"`
}

// Text resolves the message text with button payloads taking precedence over
// plain text, then over extended/quoted text. Returns "" when no text form is
// present (media messages and the like).
func (b *InboundWebhook) Text() string {
	if b.MessageData.ButtonTextData != nil && b.MessageData.ButtonTextData.ButtonText != "" {
		return b.MessageData.ButtonTextData.ButtonText
	}
	if b.MessageData.TextMessageData != nil && b.MessageData.TextMessageData.TextMessage != "" {
		return b.MessageData.TextMessageData.TextMessage
	}
	if b.MessageData.ExtendedTextMessageData != nil {
		return b.MessageData.ExtendedTextMessageData.Text
	}
	return ""
}

// Rejection reasons reported in webhook acknowledgements.
const (
	ReasonDisabled     = "bot_disabled"
	ReasonGroupChat    = "group_chat"
	ReasonUnauthorized = "unauthorized"
	ReasonNoText       = "no_text"
)

// WebhookAck is the JSON body returned for every inbound webhook call.
// Handled events always carry ok=true, with Ignored/Reason distinguishing
// filtered events; only unexpected failures set ok=false.
type WebhookAck struct {
	OK      bool   `json:"ok"`
	Ignored bool   `json:"ignored,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Acked returns the plain success acknowledgement.
func Acked() WebhookAck {
	return WebhookAck{OK: true}
}

// Ignored returns a success acknowledgement tagged with a rejection reason.
func Ignored(reason string) WebhookAck {
	return WebhookAck{OK: true, Ignored: true, Reason: reason}
}

// APIStatus represents the status of a management API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope for the management endpoints (/bot/enabled,
// /leads). The webhook endpoint uses WebhookAck instead, matching the
// gateway's expected {ok: ...} shape.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result any) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
