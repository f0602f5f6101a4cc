package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenaleads/leadpipe/internal/bot"
	"github.com/arenaleads/leadpipe/internal/models"
)

// rootHandler answers a short banner so load balancer probes and curious
// browsers get something other than a 404.
func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("not found"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "LeadPipe API")
}

// webhookHandler receives Green API inbound notifications. Every recognized
// event is acknowledged with 200 regardless of delivery outcome, so the
// gateway never retries a turn that already ran.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}

	var wh models.InboundWebhook
	if err := json.NewDecoder(r.Body).Decode(&wh); err != nil {
		slog.Error("Server.webhookHandler: failed to decode webhook body", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.WebhookAck{OK: false, Error: "invalid webhook body"})
		return
	}

	ack := s.dispatcher.Process(r.Context(), wh)
	writeJSONResponse(w, http.StatusOK, ack)
}

// enabledRequest is the POST body for the kill switch endpoint. A pointer
// distinguishes a missing field from an explicit false.
type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// enabledHandler reads (GET) or sets (POST) the process-wide bot toggle.
func (s *Server) enabledHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		enabled, err := s.store.BotEnabled()
		if err != nil {
			slog.Error("Server.enabledHandler: failed to read bot toggle", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to read bot toggle"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]bool{"enabled": enabled}))

	case http.MethodPost:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("body must be {\"enabled\": true|false}"))
			return
		}
		if err := s.store.SetBotEnabled(*req.Enabled); err != nil {
			slog.Error("Server.enabledHandler: failed to set bot toggle", "error", err, "enabled", *req.Enabled)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to set bot toggle"))
			return
		}
		slog.Info("Server.enabledHandler: bot toggle updated", "enabled", *req.Enabled)
		writeJSONResponse(w, http.StatusOK, models.Success(map[string]bool{"enabled": *req.Enabled}))

	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
	}
}

// leadsHandler lists the recorded leads, newest first.
func (s *Server) leadsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}

	leads, err := s.store.ListLeads()
	if err != nil {
		slog.Error("Server.leadsHandler: failed to list leads", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list leads"))
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}

// healthStatus is the health probe body.
type healthStatus struct {
	Status  string              `json:"status"`
	Uptime  string              `json:"uptime"`
	Metrics bot.MetricsSnapshot `json:"metrics"`
}

// healthHandler reports liveness plus the dispatcher's swallowed-failure
// counters, which otherwise only show up in logs.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
		return
	}

	status := healthStatus{
		Status:  "ok",
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		Metrics: s.dispatcher.Metrics().Snapshot(),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(status))
}
