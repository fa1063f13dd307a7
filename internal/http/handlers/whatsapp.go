// Package handlers holds the inbound HTTP surface: the Twilio WhatsApp
// webhook that feeds the dialog engine.
package handlers

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medagenda/or-assistant/internal/observability/metrics"
	"github.com/medagenda/or-assistant/internal/phone"
	"github.com/medagenda/or-assistant/pkg/logging"
)

var whatsappTracer = otel.Tracer("orassistant.internal.http.whatsapp")

// Dialog turns one inbound message into one reply.
type Dialog interface {
	Handle(ctx context.Context, sender, text string) string
}

// WhatsAppHandler receives Twilio WhatsApp webhooks and answers with TwiML.
type WhatsAppHandler struct {
	dialog        Dialog
	webhookSecret string
	logger        *logging.Logger
	metrics       *metrics.ConversationMetrics
}

// NewWhatsAppHandler creates the webhook handler. With an empty secret the
// signature check is skipped (local development).
func NewWhatsAppHandler(dialog Dialog, webhookSecret string, logger *logging.Logger, m *metrics.ConversationMetrics) *WhatsAppHandler {
	if dialog == nil {
		panic("handlers: dialog cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppHandler{
		dialog:        dialog,
		webhookSecret: webhookSecret,
		logger:        logger,
		metrics:       m,
	}
}

// HandleMessage handles POST /whatsapp. Twilio retries non-200 responses,
// so malformed payloads get an empty TwiML ack rather than an error status.
func (h *WhatsAppHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := whatsappTracer.Start(r.Context(), "http.whatsapp.message")
	defer span.End()
	start := time.Now()

	if h.webhookSecret != "" {
		if !ValidateTwilioSignature(r, h.webhookSecret, buildAbsoluteURL(r)) {
			h.logger.Warn("invalid twilio signature")
			span.RecordError(errors.New("invalid twilio signature"))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse webhook form", "error", err)
		span.RecordError(err)
		h.metrics.ObserveTurn("bad_request", time.Since(start).Seconds())
		writeTwiML(w, "")
		return
	}

	sender := phone.NormalizeMX(strings.TrimPrefix(r.FormValue("From"), "whatsapp:"))
	body := r.FormValue("Body")
	span.SetAttributes(
		attribute.String("orassistant.whatsapp.from", sender),
		attribute.Int("orassistant.whatsapp.body_len", len(body)),
	)

	if sender == "" || strings.TrimSpace(body) == "" {
		h.logger.Warn("webhook missing sender or body")
		h.metrics.ObserveTurn("bad_request", time.Since(start).Seconds())
		writeTwiML(w, "")
		return
	}

	reply := h.dialog.Handle(ctx, sender, body)
	h.metrics.ObserveTurn("ok", time.Since(start).Seconds())
	h.logger.Info("webhook turn completed",
		"from", sender,
		"reply_len", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeTwiML(w, reply)
}

// HealthCheck returns a simple health check response.
func (h *WhatsAppHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// writeTwiML renders the reply as a Twilio messaging response. An empty
// message produces the bare ack Twilio expects when nothing should be sent.
func writeTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if message == "" {
		_, _ = w.Write([]byte(xml.Header + "<Response/>"))
		return
	}
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(message))
	_, _ = w.Write([]byte(xml.Header + "<Response><Message>" + escaped.String() + "</Message></Response>"))
}
