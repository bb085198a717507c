/**
 * @description
 * This file contains the core application service for the donation-service.
 * It implements the business logic for checkout creation, campaign queries,
 * leaderboard ranking, milestone evaluation, and the admin mutations, relying
 * on the Repository interface for persistence and the gateway client for
 * provider calls.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Event publishing for completed donations and alerts.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autohub/donation-service/internal/domain"
	"github.com/autohub/donation-service/internal/store"
	"github.com/autohub/donation-service/pkg/rabbitmq"
)

var (
	ErrInvalidPeriod       = errors.New("invalid leaderboard period")
	ErrInvalidManualEntry  = errors.New("manual transaction requires a positive amount and a donor name")
	ErrInvalidCampaignData = errors.New("campaign requires a title and a positive goal amount")
)

// CheckoutGateway is the slice of the payment gateway the service needs to
// create hosted checkout sessions.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, amount int64, donorName, message string) (checkoutURL, orderCode string, err error)
}

// Leaderboard week window modes.
const (
	WeekModeRolling  = "rolling"
	WeekModeCalendar = "calendar"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	recentDonorsLimit       = 20
)

// Options carries the aggregation policy knobs resolved from configuration.
type Options struct {
	MilestoneThresholds []domain.MilestoneThreshold
	// IncludeAnonymous aggregates nameless donations under one "Anonymous"
	// leaderboard row instead of excluding them from the ranking.
	IncludeAnonymous bool
	// WeekMode selects the "week" window semantics: rolling 7 days or
	// calendar week starting Monday 00:00 local time.
	WeekMode string
}

// Service orchestrates the donation ledger, aggregation, and admin flows.
type Service struct {
	repo      store.Repository
	gateway   CheckoutGateway
	publisher rabbitmq.Publisher
	opts      Options

	// now is swappable for window-boundary tests.
	now func() time.Time
}

// NewService creates the application service with its dependencies.
func NewService(repo store.Repository, gateway CheckoutGateway, publisher rabbitmq.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{}
	}
	if opts.WeekMode != WeekModeCalendar {
		opts.WeekMode = WeekModeRolling
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// ActiveCampaign returns the currently active campaign, or nil when there is
// none. Absence is a normal condition, not an error.
func (s *Service) ActiveCampaign(ctx context.Context) (*domain.Campaign, error) {
	campaign, err := s.repo.FindActiveCampaign(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoActiveCampaign) {
			return nil, nil
		}
		return nil, err
	}
	return campaign, nil
}

// RecentDonors returns the latest successful donations for the public widget.
func (s *Service) RecentDonors(ctx context.Context) ([]domain.Donor, error) {
	return s.repo.ListRecentDonors(ctx, recentDonorsLimit)
}

// CreatePayment opens a checkout session against the gateway and records the
// pending ledger row keyed by the provider order code.
func (s *Service) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	var campaign *domain.Campaign
	var err error
	if req.DonationID != nil {
		campaign, err = s.repo.FindCampaignByID(ctx, *req.DonationID)
	} else {
		campaign, err = s.repo.FindActiveCampaign(ctx)
	}
	if err != nil {
		return nil, err
	}

	donorName := ""
	if req.DonorName != nil {
		donorName = strings.TrimSpace(*req.DonorName)
	}
	message := ""
	if req.DonorMessage != nil {
		message = strings.TrimSpace(*req.DonorMessage)
	}

	checkoutURL, orderCode, err := s.gateway.CreateCheckout(ctx, req.Amount, donorName, message)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		CampaignID:        campaign.ID,
		Amount:            req.Amount,
		ProviderOrderCode: orderCode,
	}
	if donorName != "" {
		txn.DonorName = &donorName
	}
	if message != "" {
		txn.DonorMessage = &message
	}
	if err := s.repo.InsertPendingTransaction(ctx, txn); err != nil {
		// The checkout session exists but has no ledger row; a webhook for it
		// will be rejected as an unknown order code and never credited.
		log.Printf("level=error component=app op=create_payment order_code=%s msg=\"pending insert failed after checkout creation\" err=%v", orderCode, err)
		return nil, err
	}

	log.Printf("level=info component=app op=create_payment campaign_id=%s order_code=%s amount=%d", campaign.ID, orderCode, req.Amount)
	return &domain.CreatePaymentResponse{CheckoutURL: checkoutURL, OrderCode: orderCode}, nil
}

// CheckPayment reports the current status and amount for an order code. The
// web client polls this after redirecting the donor to the checkout page.
func (s *Service) CheckPayment(ctx context.Context, orderCode string) (*domain.Transaction, error) {
	return s.repo.FindTransactionByOrderCode(ctx, orderCode)
}

// Leaderboard ranks donors by their summed successful donations within the
// requested period. Ties on total are broken by the earliest first payment.
func (s *Service) Leaderboard(ctx context.Context, period string, limit int) ([]domain.LeaderboardEntry, error) {
	since, err := s.windowStart(period)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	rows, err := s.repo.LeaderboardEntries(ctx, store.LeaderboardOptions{
		Since:            since,
		Limit:            limit,
		IncludeAnonymous: s.opts.IncludeAnonymous,
	})
	if err != nil {
		return nil, err
	}
	return rankEntries(rows), nil
}

// rankEntries orders grouped donor rows and assigns ranks, badges and tiers.
// The ordering contract lives here, not in the store: totals descending, and
// equal totals rank the earlier first payment higher.
func rankEntries(rows []store.LeaderboardRow) []domain.LeaderboardEntry {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalAmount != rows[j].TotalAmount {
			return rows[i].TotalAmount > rows[j].TotalAmount
		}
		return rows[i].FirstPaidAt.Before(rows[j].FirstPaidAt)
	})

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entry := domain.LeaderboardEntry{
			Rank:          i + 1,
			DonorName:     row.DonorName,
			TotalAmount:   row.TotalAmount,
			DonationCount: row.DonationCount,
			Tier:          ClassifyTier(row.LifetimeTotal),
		}
		if badge := rankBadge(entry.Rank); badge != "" {
			entry.Badge = &badge
		}
		entries = append(entries, entry)
	}
	return entries
}

// windowStart resolves a leaderboard period to its lower paid_at bound.
// A nil result means all time.
func (s *Service) windowStart(period string) (*time.Time, error) {
	now := s.now()
	switch period {
	case "", domain.PeriodAll:
		return nil, nil
	case domain.PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return &start, nil
	case domain.PeriodWeek:
		if s.opts.WeekMode == WeekModeCalendar {
			// Monday 00:00 in the server's local timezone.
			weekday := int(now.Weekday())
			if weekday == 0 {
				weekday = 7
			}
			start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
			return &start, nil
		}
		start := now.Add(-7 * 24 * time.Hour)
		return &start, nil
	default:
		return nil, ErrInvalidPeriod
	}
}

func rankBadge(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// Milestones evaluates the configured thresholds against the active
// campaign. With no active campaign it degrades to an empty result.
func (s *Service) Milestones(ctx context.Context) (currentAmount, goalAmount int64, milestones []domain.Milestone, err error) {
	campaign, err := s.ActiveCampaign(ctx)
	if err != nil {
		return 0, 0, nil, err
	}
	if campaign == nil {
		return 0, 0, []domain.Milestone{}, nil
	}
	return campaign.CurrentAmount, campaign.GoalAmount, ComputeMilestones(campaign.CurrentAmount, s.opts.MilestoneThresholds), nil
}

// DonorTier classifies a donor by their lifetime successful total.
func (s *Service) DonorTier(ctx context.Context, donorName string) (tier string, lifetimeTotal int64, err error) {
	lifetimeTotal, err = s.repo.DonorLifetimeTotal(ctx, donorName)
	if err != nil {
		return "", 0, err
	}
	return ClassifyTier(lifetimeTotal), lifetimeTotal, nil
}

// ListCampaigns returns every campaign for the admin console.
func (s *Service) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.ListCampaigns(ctx)
}

// CreateCampaign creates a campaign; when the input marks it active, every
// other campaign is deactivated in the same activation transaction.
func (s *Service) CreateCampaign(ctx context.Context, input domain.CampaignInput) (*domain.Campaign, error) {
	if err := validateCampaignInput(input); err != nil {
		return nil, err
	}
	campaign := &domain.Campaign{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		GoalAmount:  input.GoalAmount,
		EndDate:     input.EndDate,
	}
	if err := s.repo.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}
	if input.IsActive {
		if err := s.repo.ActivateExclusively(ctx, campaign.ID); err != nil {
			return nil, err
		}
		campaign.IsActive = true
	}
	log.Printf("level=info component=app op=create_campaign campaign_id=%s active=%t goal=%d", campaign.ID, campaign.IsActive, campaign.GoalAmount)
	return campaign, nil
}

// UpdateCampaign applies the admin edit. Activation goes through
// ActivateExclusively so the single-active invariant survives concurrent
// updates.
func (s *Service) UpdateCampaign(ctx context.Context, campaignID uuid.UUID, input domain.CampaignInput) (*domain.Campaign, error) {
	if err := validateCampaignInput(input); err != nil {
		return nil, err
	}
	campaign, err := s.repo.UpdateCampaign(ctx, campaignID, input)
	if err != nil {
		return nil, err
	}
	if input.IsActive {
		if err := s.repo.ActivateExclusively(ctx, campaignID); err != nil {
			return nil, err
		}
		campaign.IsActive = true
	}
	return campaign, nil
}

// DeleteCampaign removes a campaign; the repository refuses when credited
// transactions exist, so donation history is never silently destroyed.
func (s *Service) DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return s.repo.DeleteCampaign(ctx, campaignID)
}

// CampaignTransactions returns one admin page of a campaign's ledger rows.
func (s *Service) CampaignTransactions(ctx context.Context, campaignID uuid.UUID, page, pageSize int) ([]domain.Transaction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactionsByCampaign(ctx, campaignID, pageSize, (page-1)*pageSize)
}

// AddManualTransaction records an offline donation directly in success state
// and triggers the same recomputation as a webhook-driven success.
func (s *Service) AddManualTransaction(ctx context.Context, campaignID uuid.UUID, input domain.ManualTransactionInput) (*domain.Transaction, error) {
	donorName := strings.TrimSpace(input.DonorName)
	if input.Amount <= 0 || donorName == "" {
		return nil, ErrInvalidManualEntry
	}
	if _, err := s.repo.FindCampaignByID(ctx, campaignID); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		CampaignID:        campaignID,
		DonorName:         &donorName,
		DonorMessage:      input.DonorMessage,
		Amount:            input.Amount,
		ProviderOrderCode: fmt.Sprintf("manual-%s", uuid.New()),
	}
	if err := s.repo.CreateSuccessfulTransaction(ctx, txn); err != nil {
		return nil, err
	}
	total, err := s.repo.RecomputeCampaignProgress(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("recompute after manual entry: %w", err)
	}

	if pubErr := s.publisher.Publish(ctx, rabbitmq.DonationExchange, rabbitmq.RoutingKeyCompleted, domain.DonationCompletedEvent{
		OrderCode:  txn.ProviderOrderCode,
		CampaignID: campaignID.String(),
		DonorName:  donorName,
		Amount:     txn.Amount,
		Timestamp:  time.Now().UTC(),
	}); pubErr != nil {
		log.Printf("level=warn component=app op=add_manual msg=\"completed event publish failed\" order_code=%s err=%v", txn.ProviderOrderCode, pubErr)
	}

	log.Printf("level=info component=app op=add_manual campaign_id=%s amount=%d new_total=%d", campaignID, txn.Amount, total)
	return txn, nil
}

func validateCampaignInput(input domain.CampaignInput) error {
	if strings.TrimSpace(input.Title) == "" || input.GoalAmount <= 0 {
		return ErrInvalidCampaignData
	}
	return nil
}
