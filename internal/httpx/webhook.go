package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/models"
	"github.com/mmynk/groupcart/internal/payments"
)

// WebhookSecretHeader carries the shared secret the gateway signs calls with.
const WebhookSecretHeader = "X-Webhook-Secret"

// PaymentProcessor records a payment notification. *payments.Handler implements it.
type PaymentProcessor interface {
	Process(ctx context.Context, eventID string, p events.PaymentSucceededPayload) (payments.Outcome, error)
}

// WebhookRequest is the body the gateway posts for a cleared charge.
type WebhookRequest struct {
	EventID string `json:"event_id"`
	events.PaymentSucceededPayload
}

type WebhookResponse struct {
	Outcome payments.Outcome `json:"outcome"`
}

// WebhookHandler is the HTTP alternative to the payment topic.
type WebhookHandler struct {
	processor PaymentProcessor
	secret    []byte
}

// NewWebhookHandler returns a handler that accepts calls carrying secret.
func NewWebhookHandler(processor PaymentProcessor, secret string) *WebhookHandler {
	return &WebhookHandler{processor: processor, secret: []byte(secret)}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	got := []byte(r.Header.Get(WebhookSecretHeader))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(got, h.secret) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid webhook secret"})
		return
	}

	var req WebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return
	}

	outcome, err := h.processor.Process(r.Context(), req.EventID, req.PaymentSucceededPayload)
	if err != nil {
		slog.Warn("Payment webhook failed", "event_id", req.EventID, "group_id", req.GroupID, "error", err)
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, WebhookResponse{Outcome: outcome})
}

func statusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindConflict:
		return http.StatusConflict
	case models.KindPermission:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
