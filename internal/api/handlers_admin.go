/**
 * @description
 * This file contains the HTTP handlers for the authenticated admin endpoints:
 * campaign CRUD, the transaction history screen, and manual (offline)
 * donation entry. All routes here sit behind AdminAuthMiddleware.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Service logic, models, errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/autohub/donation-service/internal/app"
	"github.com/autohub/donation-service/internal/domain"
	"github.com/autohub/donation-service/internal/store"
)

// AdminListHandler returns every campaign for the admin console.
func (h *DonationHandlers) AdminListHandler(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.ListCampaigns(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_list msg=\"query failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to list campaigns")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donations": campaigns})
}

// AdminCreateHandler creates a campaign.
func (h *DonationHandlers) AdminCreateHandler(w http.ResponseWriter, r *http.Request) {
	var input domain.CampaignInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedPayload", "Invalid request body")
		return
	}

	campaign, err := h.service.CreateCampaign(r.Context(), input)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCampaignData) {
			writeError(w, http.StatusBadRequest, "InvalidCampaign", err.Error())
			return
		}
		log.Printf("level=error component=api endpoint=admin_create msg=\"create failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to create campaign")
		return
	}

	admin, _ := GetAdminUser(r.Context())
	log.Printf("level=info component=api endpoint=admin_create campaign_id=%s admin=%s", campaign.ID, admin)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"donation": campaign})
}

// AdminUpdateHandler updates a campaign; setting isActive true atomically
// deactivates every other campaign.
func (h *DonationHandlers) AdminUpdateHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	var input domain.CampaignInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedPayload", "Invalid request body")
		return
	}

	campaign, err := h.service.UpdateCampaign(r.Context(), campaignID, input)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCampaignData):
			writeError(w, http.StatusBadRequest, "InvalidCampaign", err.Error())
		case errors.Is(err, store.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "CampaignNotFound", "Campaign not found")
		default:
			log.Printf("level=error component=api endpoint=admin_update campaign_id=%s msg=\"update failed\" err=%v", campaignID, err)
			writeError(w, http.StatusInternalServerError, "InternalError", "Unable to update campaign")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donation": campaign})
}

// AdminDeleteHandler deletes a campaign without donation history.
func (h *DonationHandlers) AdminDeleteHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCampaign(r.Context(), campaignID); err != nil {
		switch {
		case errors.Is(err, store.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "CampaignNotFound", "Campaign not found")
		case errors.Is(err, store.ErrCampaignHasTransactions):
			writeError(w, http.StatusConflict, "CampaignHasTransactions", "Campaign has successful donations and cannot be deleted")
		default:
			log.Printf("level=error component=api endpoint=admin_delete campaign_id=%s msg=\"delete failed\" err=%v", campaignID, err)
			writeError(w, http.StatusInternalServerError, "InternalError", "Unable to delete campaign")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// AdminTransactionsHandler returns one page of a campaign's ledger rows.
func (h *DonationHandlers) AdminTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	page := 1
	if rawPage := r.URL.Query().Get("page"); rawPage != "" {
		parsed, err := strconv.Atoi(rawPage)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "InvalidPage", "page must be a positive integer")
			return
		}
		page = parsed
	}

	txns, err := h.service.CampaignTransactions(r.Context(), campaignID, page, 20)
	if err != nil {
		if errors.Is(err, store.ErrCampaignNotFound) {
			writeError(w, http.StatusNotFound, "CampaignNotFound", "Campaign not found")
			return
		}
		log.Printf("level=error component=api endpoint=admin_transactions campaign_id=%s msg=\"query failed\" err=%v", campaignID, err)
		writeError(w, http.StatusInternalServerError, "InternalError", "Unable to list transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txns})
}

// AdminAddManualHandler records an offline donation directly in success state.
func (h *DonationHandlers) AdminAddManualHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseCampaignID(w, r)
	if !ok {
		return
	}

	var input domain.ManualTransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedPayload", "Invalid request body")
		return
	}

	txn, err := h.service.AddManualTransaction(r.Context(), campaignID, input)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidManualEntry):
			writeError(w, http.StatusBadRequest, "InvalidAmount", err.Error())
		case errors.Is(err, store.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "CampaignNotFound", "Campaign not found")
		default:
			log.Printf("level=error component=api endpoint=admin_add_manual campaign_id=%s msg=\"manual entry failed\" err=%v", campaignID, err)
			writeError(w, http.StatusInternalServerError, "InternalError", "Unable to add manual transaction")
		}
		return
	}

	admin, _ := GetAdminUser(r.Context())
	log.Printf("level=info component=api endpoint=admin_add_manual campaign_id=%s amount=%d admin=%s", campaignID, txn.Amount, admin)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"transaction": txn})
}

func parseCampaignID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidCampaignID", "Campaign id must be a UUID")
		return uuid.Nil, false
	}
	return campaignID, true
}
