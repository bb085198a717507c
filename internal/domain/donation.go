/**
 * @description
 * This file defines the core domain models for the donation-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests, database models, and gateway
 *   payloads ensures clear separation of concerns and type safety.
 * - Amounts are stored as `int64` in the smallest currency unit (VND has no
 *   subunit, so 1 = 1 dong), which avoids floating-point inaccuracies with
 *   financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses. A transaction transitions exactly once from
// pending to success or failed; terminal states are final.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Campaign represents a fundraising campaign with a target amount and a
// cached running total. This struct maps directly to the `campaigns` table.
// At most one campaign is active at any time.
type Campaign struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	GoalAmount    int64      `json:"goalAmount"`
	CurrentAmount int64      `json:"currentAmount"` // derived cache, written only by recomputation
	IsActive      bool       `json:"isActive"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	DonorsCount   int64      `json:"donorsCount"` // derived on read, not persisted
	CreatedAt     time.Time  `json:"createdAt"`
}

// Transaction is the ledger record for a single donation. This struct maps
// directly to the `donation_transactions` table.
type Transaction struct {
	ID                uuid.UUID  `json:"id"`
	CampaignID        uuid.UUID  `json:"campaignId"`
	DonorName         *string    `json:"donorName,omitempty"` // nil renders as "Anonymous"
	DonorMessage      *string    `json:"message,omitempty"`
	Amount            int64      `json:"amount"`
	Status            string     `json:"status"` // pending, success, failed
	ProviderOrderCode string     `json:"orderCode"`
	PaidAt            *time.Time `json:"paidAt,omitempty"` // set only on success
	CreatedAt         time.Time  `json:"createdAt"`
}

// DisplayName returns the donor name to render publicly, falling back to
// "Anonymous" for nameless donations.
func (t *Transaction) DisplayName() string {
	if t.DonorName == nil || *t.DonorName == "" {
		return AnonymousDonor
	}
	return *t.DonorName
}

// AnonymousDonor is the public label for donations without a donor name.
const AnonymousDonor = "Anonymous"

// Donor is the public view of a successful donation served by the
// recent-donors endpoint.
type Donor struct {
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Message   *string   `json:"message,omitempty"`
	PaidAt    time.Time `json:"paidAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Milestone is a fixed monetary checkpoint within a campaign's goal.
// Milestones are recomputed from the campaign total on every query and
// never persisted.
type Milestone struct {
	Amount      int64   `json:"amount"`
	Description string  `json:"description"`
	Reached     bool    `json:"reached"`
	Progress    float64 `json:"progress"`
}

// MilestoneThreshold is a configured checkpoint before evaluation.
type MilestoneThreshold struct {
	Amount      int64
	Description string
}

// LeaderboardEntry is one ranked row of the donor leaderboard. Derived,
// never persisted.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	DonorName     string  `json:"donorName"`
	TotalAmount   int64   `json:"totalAmount"`
	DonationCount int64   `json:"donationCount"`
	Badge         *string `json:"badge,omitempty"` // top-three medal, else nil
	Tier          string  `json:"tier"`            // lifetime-total classification
}

// LeaderboardPeriod enumerates the supported ranking windows.
const (
	PeriodAll   = "all"
	PeriodMonth = "month"
	PeriodWeek  = "week"
)

// Donor tiers, classified from a donor's lifetime successful total.
const (
	TierNone    = "none"
	TierBronze  = "bronze"
	TierSilver  = "silver"
	TierGold    = "gold"
	TierDiamond = "diamond"
)

// CreatePaymentRequest is the DTO for the public create-payment endpoint.
// DonationID is optional; when absent the active campaign is used.
type CreatePaymentRequest struct {
	DonationID   *uuid.UUID `json:"donationId,omitempty"`
	Amount       int64      `json:"amount"`
	DonorName    *string    `json:"donorName,omitempty"`
	DonorMessage *string    `json:"message,omitempty"`
}

// CreatePaymentResponse mirrors the shape the web client expects after a
// checkout session has been created.
type CreatePaymentResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	OrderCode   string `json:"orderCode"`
}

// CampaignInput is the DTO for admin campaign create/update requests.
type CampaignInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	GoalAmount  int64      `json:"goalAmount"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	IsActive    bool       `json:"isActive"`
}

// ManualTransactionInput is the DTO for admin manual (offline) donations.
// Manual entries are created directly in success state.
type ManualTransactionInput struct {
	Amount       int64   `json:"amount"`
	DonorName    string  `json:"donorName"`
	DonorMessage *string `json:"message,omitempty"`
}
