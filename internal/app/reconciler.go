/**
 * @description
 * The reconciliation engine applies verified payment-provider webhooks to the
 * ledger exactly once. The gateway adapter has already authenticated and
 * parsed the payload; this component owns the lookup, the tamper guard, the
 * idempotent finalize, and the progress recomputation that follows a credit.
 *
 * @notes
 * - Serialization per order code comes from the store's conditional UPDATE,
 *   not from an in-process lock: duplicate concurrent deliveries race on the
 *   database row and the loser observes an idempotent replay.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/autohub/donation-service/internal/domain"
	"github.com/autohub/donation-service/internal/store"
	"github.com/autohub/donation-service/pkg/rabbitmq"
)

var (
	// ErrUnknownOrderCode marks a webhook for an order code with no ledger
	// row: likely forged or stale. Logged, never retried.
	ErrUnknownOrderCode = errors.New("unknown order code")
	// ErrAmountMismatch marks a webhook whose amount differs from the pending
	// row. The transaction stays pending and is flagged for manual review;
	// crediting a mismatched amount is never permitted.
	ErrAmountMismatch = errors.New("webhook amount does not match pending transaction")
)

// Reconciler consumes verified webhook events and applies them to the ledger.
type Reconciler struct {
	repo      store.Repository
	publisher rabbitmq.Publisher
}

// NewReconciler creates a reconciliation engine.
func NewReconciler(repo store.Repository, publisher rabbitmq.Publisher) *Reconciler {
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{}
	}
	return &Reconciler{repo: repo, publisher: publisher}
}

// Process applies one verified webhook event. It is safe to call multiple
// times with the same event: replays of an already-applied terminal status
// are acknowledged without a second credit.
func (r *Reconciler) Process(ctx context.Context, event domain.WebhookEvent) error {
	txn, err := r.repo.FindTransactionByOrderCode(ctx, event.OrderCode)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			log.Printf("level=warn component=reconciler order_code=%s msg=\"webhook for unknown order code; ignoring\"", event.OrderCode)
			return ErrUnknownOrderCode
		}
		return fmt.Errorf("lookup transaction: %w", err)
	}

	// The tamper guard only applies when money would be credited. Failure
	// webhooks often omit or zero the amount.
	if event.Status == domain.StatusSuccess && event.Amount != txn.Amount {
		log.Printf("level=error component=reconciler order_code=%s expected=%d reported=%d msg=\"amount mismatch; leaving transaction pending for manual review\"",
			event.OrderCode, txn.Amount, event.Amount)
		if pubErr := r.publisher.Publish(ctx, rabbitmq.DonationExchange, rabbitmq.RoutingKeyAmountMismatch, domain.AmountMismatchAlert{
			OrderCode:      event.OrderCode,
			ExpectedAmount: txn.Amount,
			ReportedAmount: event.Amount,
			Timestamp:      time.Now().UTC(),
		}); pubErr != nil {
			log.Printf("level=error component=reconciler order_code=%s msg=\"mismatch alert publish failed\" err=%v", event.OrderCode, pubErr)
		}
		return ErrAmountMismatch
	}

	paidAt := event.OccurredAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	result, err := r.repo.FinalizeTransaction(ctx, event.OrderCode, event.Status, paidAt)
	if err != nil {
		return fmt.Errorf("finalize transaction: %w", err)
	}
	if !result.Applied {
		log.Printf("level=info component=reconciler order_code=%s status=%s msg=\"replay of already-finalized transaction; acknowledged\"", event.OrderCode, event.Status)
		return nil
	}

	if event.Status != domain.StatusSuccess {
		log.Printf("level=info component=reconciler order_code=%s msg=\"transaction marked failed\"", event.OrderCode)
		return nil
	}

	total, err := r.repo.RecomputeCampaignProgress(ctx, result.Transaction.CampaignID)
	if err != nil {
		// The credit is durable; a failed recompute only staled the cache and
		// the next finalize or manual recompute repairs it.
		log.Printf("level=error component=reconciler order_code=%s campaign_id=%s msg=\"progress recompute failed\" err=%v",
			event.OrderCode, result.Transaction.CampaignID, err)
		return fmt.Errorf("recompute campaign progress: %w", err)
	}

	if pubErr := r.publisher.Publish(ctx, rabbitmq.DonationExchange, rabbitmq.RoutingKeyCompleted, domain.DonationCompletedEvent{
		OrderCode:  event.OrderCode,
		CampaignID: result.Transaction.CampaignID.String(),
		DonorName:  result.Transaction.DisplayName(),
		Amount:     result.Transaction.Amount,
		Timestamp:  time.Now().UTC(),
	}); pubErr != nil {
		log.Printf("level=warn component=reconciler order_code=%s msg=\"completed event publish failed\" err=%v", event.OrderCode, pubErr)
	}

	log.Printf("level=info component=reconciler order_code=%s campaign_id=%s amount=%d new_total=%d msg=\"donation credited\"",
		event.OrderCode, result.Transaction.CampaignID, result.Transaction.Amount, total)
	return nil
}
