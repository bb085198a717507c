/**
 * @description
 * This file contains the HTTP handler for payment-provider webhook callbacks.
 * It is the single decode point for the provider envelope: the gateway
 * adapter authenticates and parses the payload, and the reconciliation
 * engine applies it to the ledger exactly once.
 *
 * Status policy (provider retries on any non-2xx):
 * - invalid signature / malformed payload -> non-2xx, provider retries; the
 *   idempotent finalize makes retries safe.
 * - unknown order code -> 200; retrying a forged or stale delivery cannot
 *   ever succeed.
 * - amount mismatch -> 200; the row stays pending, an operational alert has
 *   been raised, and retrying the same tampered payload changes nothing.
 * - conflicting terminal status for an already-finalized row -> 200; terminal
 *   states are final, so redelivery of the conflicting payload can never
 *   succeed.
 * - transient processing errors -> 500 so the provider redelivers.
 */

package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/autohub/donation-service/internal/app"
	"github.com/autohub/donation-service/internal/domain"
	"github.com/autohub/donation-service/internal/store"
	"github.com/autohub/donation-service/pkg/payos"
)

// SignatureHeader is where the provider carries the webhook signature when
// it is not embedded in the body.
const SignatureHeader = "x-payos-signature"

// WebhookVerifier is the slice of the gateway adapter the webhook endpoint
// needs: pure validation and parsing, no ledger effects.
type WebhookVerifier interface {
	VerifyWebhook(rawPayload []byte, signatureHeader string) (*payos.WebhookEvent, error)
}

// WebhookHandler processes inbound callbacks from the payment provider.
type WebhookHandler struct {
	verifier   WebhookVerifier
	reconciler *app.Reconciler
}

// NewWebhookHandler creates a handler for the provider webhook endpoint.
func NewWebhookHandler(verifier WebhookVerifier, reconciler *app.Reconciler) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, reconciler: reconciler}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "MalformedPayload", "Cannot read request body")
		return
	}

	event, err := h.verifier.VerifyWebhook(body, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, payos.ErrInvalidSignature):
			log.Printf("level=warn component=webhook msg=\"invalid signature\" remote=%s", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "InvalidSignature", "Webhook signature verification failed")
		case errors.Is(err, payos.ErrMalformedPayload):
			log.Printf("level=warn component=webhook msg=\"malformed payload\" err=%v", err)
			writeError(w, http.StatusBadRequest, "MalformedPayload", "Webhook payload could not be parsed")
		default:
			log.Printf("level=error component=webhook msg=\"verification failed\" err=%v", err)
			writeError(w, http.StatusInternalServerError, "InternalError", "Webhook verification failed")
		}
		return
	}

	err = h.reconciler.Process(r.Context(), domain.WebhookEvent{
		OrderCode:  event.OrderCode,
		Status:     event.Status,
		Amount:     event.Amount,
		OccurredAt: event.OccurredAt,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true})
	case errors.Is(err, app.ErrUnknownOrderCode):
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true, "ignored": "unknown order code"})
	case errors.Is(err, app.ErrAmountMismatch):
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true, "flagged": "amount mismatch"})
	case errors.Is(err, store.ErrStatusConflict):
		log.Printf("level=warn component=webhook order_code=%s status=%s msg=\"conflicting terminal replay; acknowledged\"", event.OrderCode, event.Status)
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true, "ignored": "conflicting terminal status"})
	default:
		log.Printf("level=error component=webhook order_code=%s msg=\"processing failed\" err=%v", event.OrderCode, err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Webhook processing failed")
	}
}
