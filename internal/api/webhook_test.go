package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/autohub/donation-service/internal/app"
	"github.com/autohub/donation-service/internal/domain"
	"github.com/autohub/donation-service/internal/store"
	"github.com/autohub/donation-service/pkg/payos"
)

type verifierStub struct {
	event *payos.WebhookEvent
	err   error
}

func (v *verifierStub) VerifyWebhook(rawPayload []byte, signatureHeader string) (*payos.WebhookEvent, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type webhookRepoStub struct {
	store.Repository

	tx              *domain.Transaction
	finalizeErr     error
	finalizeCalled  bool
	recomputeCalled bool
}

func (s *webhookRepoStub) FindTransactionByOrderCode(ctx context.Context, orderCode string) (*domain.Transaction, error) {
	if s.tx == nil {
		return nil, store.ErrTransactionNotFound
	}
	return s.tx, nil
}

func (s *webhookRepoStub) FinalizeTransaction(ctx context.Context, orderCode, status string, paidAt time.Time) (*store.FinalizeResult, error) {
	s.finalizeCalled = true
	if s.finalizeErr != nil {
		return nil, s.finalizeErr
	}
	return &store.FinalizeResult{Applied: true, Transaction: s.tx}, nil
}

func (s *webhookRepoStub) RecomputeCampaignProgress(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	s.recomputeCalled = true
	return s.tx.Amount, nil
}

func postWebhook(t *testing.T, handler *WebhookHandler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/donation/webhook/payos", strings.NewReader(`{"data":{}}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_InvalidSignatureIs401(t *testing.T) {
	handler := NewWebhookHandler(
		&verifierStub{err: payos.ErrInvalidSignature},
		app.NewReconciler(&webhookRepoStub{}, nil),
	)
	rec := postWebhook(t, handler)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookHandler_MalformedPayloadIs400(t *testing.T) {
	handler := NewWebhookHandler(
		&verifierStub{err: payos.ErrMalformedPayload},
		app.NewReconciler(&webhookRepoStub{}, nil),
	)
	rec := postWebhook(t, handler)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookHandler_UnknownOrderCodeIsAcknowledged(t *testing.T) {
	// 200 on purpose: retrying a delivery with no ledger row can never succeed.
	repo := &webhookRepoStub{}
	handler := NewWebhookHandler(
		&verifierStub{event: &payos.WebhookEvent{OrderCode: "no-such-order", Status: domain.StatusSuccess, Amount: 50000}},
		app.NewReconciler(repo, nil),
	)
	rec := postWebhook(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.finalizeCalled {
		t.Fatal("unknown order code must not finalize anything")
	}
}

func TestWebhookHandler_SuccessCreditsLedger(t *testing.T) {
	name := "NguyenVanA"
	repo := &webhookRepoStub{tx: &domain.Transaction{
		ID:                uuid.New(),
		CampaignID:        uuid.New(),
		DonorName:         &name,
		Amount:            50000,
		Status:            domain.StatusPending,
		ProviderOrderCode: "1724990000000123",
	}}
	handler := NewWebhookHandler(
		&verifierStub{event: &payos.WebhookEvent{OrderCode: "1724990000000123", Status: domain.StatusSuccess, Amount: 50000}},
		app.NewReconciler(repo, nil),
	)
	rec := postWebhook(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !repo.finalizeCalled || !repo.recomputeCalled {
		t.Fatalf("expected credit path, finalize=%t recompute=%t", repo.finalizeCalled, repo.recomputeCalled)
	}
}

func TestWebhookHandler_ConflictingTerminalReplayIsAcknowledged(t *testing.T) {
	// A row already finalized as failed receives a late success webhook.
	// Redelivering it can never succeed, so the provider must not retry.
	name := "NguyenVanA"
	repo := &webhookRepoStub{
		tx: &domain.Transaction{
			ID:                uuid.New(),
			CampaignID:        uuid.New(),
			DonorName:         &name,
			Amount:            50000,
			Status:            domain.StatusFailed,
			ProviderOrderCode: "1724990000000123",
		},
		finalizeErr: store.ErrStatusConflict,
	}
	handler := NewWebhookHandler(
		&verifierStub{event: &payos.WebhookEvent{OrderCode: "1724990000000123", Status: domain.StatusSuccess, Amount: 50000}},
		app.NewReconciler(repo, nil),
	)
	rec := postWebhook(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.recomputeCalled {
		t.Fatal("conflicting replay must not credit the campaign")
	}
}

func TestWebhookHandler_AmountMismatchIsAcknowledged(t *testing.T) {
	name := "NguyenVanA"
	repo := &webhookRepoStub{tx: &domain.Transaction{
		ID:                uuid.New(),
		CampaignID:        uuid.New(),
		DonorName:         &name,
		Amount:            50000,
		Status:            domain.StatusPending,
		ProviderOrderCode: "1724990000000123",
	}}
	handler := NewWebhookHandler(
		&verifierStub{event: &payos.WebhookEvent{OrderCode: "1724990000000123", Status: domain.StatusSuccess, Amount: 49999}},
		app.NewReconciler(repo, nil),
	)
	rec := postWebhook(t, handler)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.finalizeCalled {
		t.Fatal("mismatched amount must not finalize the transaction")
	}
}
