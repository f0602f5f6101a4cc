// Package bot connects the webhook surface to the dialogue engine, the store
// and the delivery channel.
//
// The dispatcher applies the inbound acceptance policy (kill switch, group
// filter, phone allow-list, text extraction), advances the per-phone dialogue
// under a per-phone lock, persists the new state, records completed leads and
// sends the reply. Delivery and lead persistence are best effort: their
// failures are logged and counted but never fail the webhook acknowledgement.
package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arenaleads/leadpipe/internal/dialog"
	"github.com/arenaleads/leadpipe/internal/messaging"
	"github.com/arenaleads/leadpipe/internal/models"
	"github.com/arenaleads/leadpipe/internal/store"
	"github.com/arenaleads/leadpipe/internal/util"
)

// generalLeadFallbackGame labels a general lead whose free-text request was
// never collected (urgent path completes before the request stage).
const generalLeadFallbackGame = "בקשה כללית"

// Metrics counts the failures the dispatcher swallows so they stay visible
// on the health endpoint.
type Metrics struct {
	Processed    atomic.Int64
	Ignored      atomic.Int64
	DroppedLeads atomic.Int64
	DroppedSends atomic.Int64
}

// MetricsSnapshot is the JSON form of the counters.
type MetricsSnapshot struct {
	Processed    int64 `json:"processed"`
	Ignored      int64 `json:"ignored"`
	DroppedLeads int64 `json:"dropped_leads"`
	DroppedSends int64 `json:"dropped_sends"`
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Processed:    m.Processed.Load(),
		Ignored:      m.Ignored.Load(),
		DroppedLeads: m.DroppedLeads.Load(),
		DroppedSends: m.DroppedSends.Load(),
	}
}

// Opts holds configuration options for the dispatcher.
type Opts struct {
	AuthorizedPhone string
}

// Option defines a configuration option for the dispatcher.
type Option func(*Opts)

// WithAuthorizedPhone restricts processing to a single phone number. The
// value is reduced to digits; an empty value leaves the dispatcher open.
func WithAuthorizedPhone(phone string) Option {
	return func(o *Opts) {
		o.AuthorizedPhone = phone
	}
}

// Dispatcher processes inbound webhook events.
type Dispatcher struct {
	store           store.Store
	msg             messaging.Service
	authorizedPhone string
	metrics         Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDispatcher creates a dispatcher over the given store and delivery channel.
func NewDispatcher(st store.Store, msg messaging.Service, opts ...Option) *Dispatcher {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	authorized := util.Digits(cfg.AuthorizedPhone)
	slog.Debug("Dispatcher created", "authorized_phone_set", authorized != "")
	return &Dispatcher{
		store:           st,
		msg:             msg,
		authorizedPhone: authorized,
		locks:           make(map[string]*sync.Mutex),
	}
}

// Metrics exposes the dispatcher counters for the health endpoint.
func (d *Dispatcher) Metrics() *Metrics {
	return &d.metrics
}

// phoneLock returns the mutex serializing turns for one phone number.
func (d *Dispatcher) phoneLock(phone string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		d.locks[phone] = l
	}
	return l
}

// Process handles one inbound webhook event and returns the acknowledgement
// body. It only reports a failure for conditions the gateway should retry;
// filtered events are acknowledged with an ignore reason.
func (d *Dispatcher) Process(ctx context.Context, wh models.InboundWebhook) models.WebhookAck {
	chatID := wh.SenderData.ChatID

	enabled, err := d.store.BotEnabled()
	if err != nil {
		slog.Error("Dispatcher.Process: bot enabled lookup failed, assuming enabled", "error", err)
		enabled = true
	}
	if !enabled {
		slog.Info("Dispatcher.Process: bot disabled, ignoring message", "chat_id", chatID)
		d.metrics.Ignored.Add(1)
		return models.Ignored(models.ReasonDisabled)
	}

	// Group chat identifiers carry a hyphen ("12345-67890@g.us").
	if strings.Contains(chatID, "-") {
		slog.Debug("Dispatcher.Process: ignoring group chat", "chat_id", chatID)
		d.metrics.Ignored.Add(1)
		return models.Ignored(models.ReasonGroupChat)
	}

	phone := util.Digits(chatID)
	if phone == "" {
		phone = util.Digits(wh.SenderData.Sender)
	}

	if d.authorizedPhone != "" {
		senderPhone := util.Digits(wh.SenderData.Sender)
		if phone != d.authorizedPhone && senderPhone != d.authorizedPhone {
			slog.Info("Dispatcher.Process: unauthorized phone, ignoring message", "chat_id", chatID)
			d.metrics.Ignored.Add(1)
			return models.Ignored(models.ReasonUnauthorized)
		}
	}

	text := wh.Text()

	lock := d.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	state, err := d.store.GetConversationState(phone)
	if err != nil {
		slog.Error("Dispatcher.Process: conversation state load failed, starting fresh", "error", err, "phone", phone)
		state = nil
	}
	current := models.NewConversationState(phone)
	if state != nil {
		current = *state
	}

	// Media-only messages carry no text. From idle this still triggers the
	// greeting; mid-dialogue it would corrupt the collected answers, so it is
	// acknowledged without a turn.
	if text == "" && current.Stage != models.StageIdle {
		slog.Debug("Dispatcher.Process: no text in message, ignoring", "phone", phone, "stage", current.Stage)
		d.metrics.Ignored.Add(1)
		return models.Ignored(models.ReasonNoText)
	}

	result := dialog.Advance(current, text)

	if err := d.store.SaveConversationState(result.Next); err != nil {
		// The turn still completes: the reply goes out and the lead (if any)
		// is recorded, the user just repeats a step after a restart.
		slog.Error("Dispatcher.Process: conversation state save failed", "error", err, "phone", phone, "stage", result.Next.Stage)
	}

	if result.Complete {
		if lead, ok := buildLead(phone, result.Next.Data); ok {
			if err := d.store.AddLead(lead); err != nil {
				slog.Error("Dispatcher.Process: lead persistence failed", "error", err, "phone", phone)
				d.metrics.DroppedLeads.Add(1)
			} else {
				slog.Info("Dispatcher.Process: lead recorded", "phone", lead.Phone, "game", lead.Game, "amount", lead.Amount, "urgent", lead.IsUrgent)
			}
		} else {
			slog.Warn("Dispatcher.Process: completed dialogue produced no lead", "phone", phone)
		}
	}

	if result.Reply != "" {
		var sendErr error
		if len(result.Buttons) > 0 {
			sendErr = d.msg.SendTextWithButtons(ctx, chatID, result.Reply, result.Buttons)
		} else {
			sendErr = d.msg.SendText(ctx, chatID, result.Reply)
		}
		if sendErr != nil {
			slog.Error("Dispatcher.Process: reply send failed", "error", sendErr, "chat_id", chatID)
			d.metrics.DroppedSends.Add(1)
		}
	}

	d.metrics.Processed.Add(1)
	return models.Acked()
}

// buildLead maps a completed dialogue's collected data onto a lead record.
// The branch is picked from the data itself, so a completed state that never
// collected the branch fields yields no lead.
func buildLead(userPhone string, d models.ConversationData) (models.Lead, bool) {
	isUrgent := d.IsUrgent != nil && *d.IsUrgent

	switch {
	case d.RequestType == models.RequestTypeTickets && d.TicketsGame != "" && d.TicketsAmount > 0:
		return models.Lead{
			Phone:         userPhone,
			Game:          d.TicketsGame,
			Amount:        d.TicketsAmount,
			IsUrgent:      false,
			IsNewCustomer: d.OrderType == models.OrderTypeNew,
			Raw:           rawSnapshot(d, models.RequestTypeTickets),
		}, true

	case d.PackageGames != "" && d.PhoneNumber != "":
		amount, err := strconv.Atoi(util.Digits(d.PackagePeople))
		if err != nil || amount <= 0 {
			amount = 1
		}
		return models.Lead{
			Phone:         d.PhoneNumber,
			Game:          d.PackageGames,
			Amount:        amount,
			IsUrgent:      false,
			IsNewCustomer: d.OrderType == models.OrderTypeNew,
			Raw:           rawSnapshot(d, models.RequestTypePackage),
		}, true

	case d.GeneralRequest != "" || (isUrgent && d.OrderType == models.OrderTypeExisting):
		game := d.GeneralRequest
		if game == "" {
			game = generalLeadFallbackGame
		}
		return models.Lead{
			Phone:         userPhone,
			Game:          game,
			Amount:        0,
			IsUrgent:      isUrgent,
			IsNewCustomer: false,
			Raw:           rawSnapshot(d, models.RequestTypeGeneral),
		}, true
	}
	return models.Lead{}, false
}

// rawSnapshot keeps the full collected answer set on the lead for auditing.
func rawSnapshot(d models.ConversationData, kind models.RequestType) map[string]any {
	raw := make(map[string]any)
	data, err := json.Marshal(d)
	if err == nil {
		_ = json.Unmarshal(data, &raw)
	}
	raw["type"] = string(kind)
	return raw
}
