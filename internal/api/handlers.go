/**
 * @description
 * This file contains the HTTP handlers for the donation-service's public
 * (unauthenticated) endpoints. Handlers parse incoming requests, call the
 * application service, and write the HTTP response; they act as the bridge
 * between the web layer and the business logic layer.
 *
 * Response shapes mirror the portal web client: `{donation}`, `{donors}`,
 * `{leaderboard}`, `{currentAmount, goalAmount, milestones}`, etc.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Service logic, models, errors.
 * - pkg/payos: Gateway error taxonomy for status mapping.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autohub/donation-service/internal/app"
	"github.com/autohub/donation-service/internal/domain"
	"github.com/autohub/donation-service/internal/store"
	"github.com/autohub/donation-service/pkg/payos"
)

// DonationHandlers holds the application service and the optional rate
// limiter used by the public endpoints.
type DonationHandlers struct {
	service             *app.Service
	limiter             *app.RedisRateLimiter
	createPaymentPerMin int
}

// NewDonationHandlers creates a new instance of DonationHandlers. The limiter
// may be nil, in which case create-payment is not rate limited.
func NewDonationHandlers(service *app.Service, limiter *app.RedisRateLimiter, createPaymentPerMin int) *DonationHandlers {
	return &DonationHandlers{
		service:             service,
		limiter:             limiter,
		createPaymentPerMin: createPaymentPerMin,
	}
}

// ActiveCampaignHandler serves the currently active campaign, or null when
// none exists. Absence is a normal condition and still a 200.
func (h *DonationHandlers) ActiveCampaignHandler(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.service.ActiveCampaign(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=active msg=\"active campaign lookup failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to load active campaign")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donation": campaign})
}

// RecentDonorsHandler serves the latest successful donations.
func (h *DonationHandlers) RecentDonorsHandler(w http.ResponseWriter, r *http.Request) {
	donors, err := h.service.RecentDonors(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=recent_donors msg=\"query failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to load recent donors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donors": donors})
}

// LeaderboardHandler serves the ranked donor leaderboard for a period.
func (h *DonationHandlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidLimit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	entries, err := h.service.Leaderboard(r.Context(), period, limit)
	if err != nil {
		if errors.Is(err, app.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "InvalidPeriod", "period must be one of all, month, week")
			return
		}
		log.Printf("level=error component=api endpoint=leaderboard period=%s msg=\"query failed\" err=%v", period, err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// MilestonesHandler serves the active campaign's progress against the
// configured milestone thresholds.
func (h *DonationHandlers) MilestonesHandler(w http.ResponseWriter, r *http.Request) {
	currentAmount, goalAmount, milestones, err := h.service.Milestones(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=milestones msg=\"query failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to load milestones")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"currentAmount": currentAmount,
		"goalAmount":    goalAmount,
		"milestones":    milestones,
	})
}

// CreatePaymentHandler opens a checkout session for a donation.
func (h *DonationHandlers) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	if !h.allowCreatePayment(w, r) {
		return
	}

	var req domain.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedPayload", "Invalid request body")
		return
	}

	resp, err := h.service.CreatePayment(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, payos.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "InvalidAmount", "Minimum donation is 10,000")
		case errors.Is(err, payos.ErrGatewayUnavailable):
			log.Printf("level=error component=api endpoint=create_payment msg=\"gateway unavailable\" err=%v", err)
			writeError(w, http.StatusBadGateway, "GatewayUnavailable", "Payment gateway is unavailable, try again later")
		case errors.Is(err, store.ErrNoActiveCampaign), errors.Is(err, store.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "CampaignNotFound", "No donation campaign available")
		default:
			log.Printf("level=error component=api endpoint=create_payment msg=\"create payment failed\" err=%v", err)
			writeError(w, http.StatusInternalServerError, "InternalError", "Unable to create payment")
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckPaymentHandler reports the status of an order code; the client polls
// this after redirecting the donor to the hosted checkout.
func (h *DonationHandlers) CheckPaymentHandler(w http.ResponseWriter, r *http.Request) {
	orderCode := chi.URLParam(r, "orderCode")
	txn, err := h.service.CheckPayment(r.Context(), orderCode)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, "UnknownOrderCode", "No payment found for this order code")
			return
		}
		log.Printf("level=error component=api endpoint=check_payment order_code=%s msg=\"lookup failed\" err=%v", orderCode, err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to check payment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": txn.Status,
		"amount": txn.Amount,
	})
}

// DonorTierHandler classifies a donor by lifetime total.
func (h *DonationHandlers) DonorTierHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "InvalidDonorName", "Donor name is required")
		return
	}
	tier, lifetimeTotal, err := h.service.DonorTier(r.Context(), name)
	if err != nil {
		log.Printf("level=error component=api endpoint=donor_tier msg=\"query failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to classify donor")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tier":          tier,
		"lifetimeTotal": lifetimeTotal,
	})
}

// allowCreatePayment applies the per-IP limit on checkout creation. With no
// limiter configured every request passes.
func (h *DonationHandlers) allowCreatePayment(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil || h.createPaymentPerMin <= 0 {
		return true
	}
	allowed, retryAfter, err := h.limiter.Allow(r.Context(), "create_payment", clientIP(r), h.createPaymentPerMin, time.Minute)
	if err != nil {
		// Rate limiting is protective, not load-bearing; fail open.
		log.Printf("level=warn component=api endpoint=create_payment msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		return true
	}
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "RateLimited", "Too many payment attempts, slow down")
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
