/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the donation-service. By defining an
 * interface, we decouple the application's business logic from the specific
 * database implementation (e.g., PostgreSQL), making the code more modular and
 * easier to test.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/autohub/donation-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Campaign methods
	CreateCampaign(ctx context.Context, campaign *domain.Campaign) error
	UpdateCampaign(ctx context.Context, campaignID uuid.UUID, input domain.CampaignInput) (*domain.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error
	FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	FindActiveCampaign(ctx context.Context) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
	// ActivateExclusively flips the given campaign active and every other
	// campaign inactive inside a single database transaction, so two
	// concurrent activations can never leave two campaigns active.
	ActivateExclusively(ctx context.Context, campaignID uuid.UUID) error

	// Ledger methods
	InsertPendingTransaction(ctx context.Context, txn *domain.Transaction) error
	CreateSuccessfulTransaction(ctx context.Context, txn *domain.Transaction) error
	// FinalizeTransaction applies a terminal status to the pending row with
	// the given order code. It is idempotent: a second call with the same
	// terminal status reports Applied=false and is not an error.
	FinalizeTransaction(ctx context.Context, orderCode, status string, paidAt time.Time) (*FinalizeResult, error)
	FindTransactionByOrderCode(ctx context.Context, orderCode string) (*domain.Transaction, error)
	ListTransactionsByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
	CountSuccessfulTransactions(ctx context.Context, campaignID uuid.UUID) (int64, error)

	// Aggregation inputs
	// RecomputeCampaignProgress re-sums all successful transactions for the
	// campaign into current_amount and returns the new total. It is a pure
	// re-sum, safe to run concurrently and redundantly.
	RecomputeCampaignProgress(ctx context.Context, campaignID uuid.UUID) (int64, error)
	ListRecentDonors(ctx context.Context, limit int) ([]domain.Donor, error)
	LeaderboardEntries(ctx context.Context, opts LeaderboardOptions) ([]LeaderboardRow, error)
	DonorLifetimeTotal(ctx context.Context, donorName string) (int64, error)
}

// FinalizeResult reports the outcome of a FinalizeTransaction call.
type FinalizeResult struct {
	// Applied is true when this call performed the pending->terminal
	// transition; false when the row was already in the requested terminal
	// state (an idempotent replay).
	Applied     bool
	Transaction *domain.Transaction
}

// LeaderboardOptions controls the ranking window and row limit.
type LeaderboardOptions struct {
	// Since bounds the window by paid_at; nil means all time.
	Since *time.Time
	Limit int
	// IncludeAnonymous aggregates nameless donations under a single
	// "Anonymous" row instead of excluding them from the ranking.
	IncludeAnonymous bool
}

// LeaderboardRow is the raw grouped aggregate the ranking math consumes.
// Rows arrive ordered by total descending, earliest first payment ascending.
type LeaderboardRow struct {
	DonorName     string
	TotalAmount   int64
	DonationCount int64
	FirstPaidAt   time.Time
	LifetimeTotal int64
}
