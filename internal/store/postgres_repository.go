/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * for campaigns and donation transactions, including the exactly-once finalize
 * guard and the leaderboard aggregation.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - FinalizeTransaction relies on a conditional UPDATE (`WHERE status='pending'`)
 *   plus the uniqueness of provider_order_code. Two concurrent webhook
 *   deliveries for the same order code race safely: exactly one update affects
 *   a row, the loser observes zero rows and reports an idempotent replay.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autohub/donation-service/internal/domain"
)

var (
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrNoActiveCampaign        = errors.New("no active campaign")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrDuplicateOrderCode      = errors.New("provider order code already exists")
	ErrStatusConflict          = errors.New("transaction already finalized with a different status")
	ErrCampaignHasTransactions = errors.New("campaign has successful transactions")
)

const pgUniqueViolation = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const campaignColumns = `
	id, title, description, goal_amount, current_amount, is_active, end_date, created_at,
	(SELECT COUNT(*) FROM donation_transactions t WHERE t.campaign_id = campaigns.id AND t.status = 'success') AS donors_count`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.GoalAmount,
		&c.CurrentAmount,
		&c.IsActive,
		&c.EndDate,
		&c.CreatedAt,
		&c.DonorsCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCampaign inserts a new campaign row.
func (r *PostgresRepository) CreateCampaign(ctx context.Context, campaign *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (id, title, description, goal_amount, current_amount, is_active, end_date, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, NOW())
		RETURNING created_at
	`
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	return r.db.QueryRow(ctx, query,
		campaign.ID,
		campaign.Title,
		campaign.Description,
		campaign.GoalAmount,
		campaign.IsActive,
		campaign.EndDate,
	).Scan(&campaign.CreatedAt)
}

// UpdateCampaign updates a campaign's editable fields. Deactivation happens
// here; activation goes through ActivateExclusively so the single-active
// invariant holds against the partial unique index.
func (r *PostgresRepository) UpdateCampaign(ctx context.Context, campaignID uuid.UUID, input domain.CampaignInput) (*domain.Campaign, error) {
	query := `
		UPDATE campaigns
		SET title = $2, description = $3, goal_amount = $4, end_date = $5,
		    is_active = (is_active AND $6)
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, campaignID, input.Title, input.Description, input.GoalAmount, input.EndDate, input.IsActive)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrCampaignNotFound
	}
	return r.FindCampaignByID(ctx, campaignID)
}

// DeleteCampaign removes a campaign that has no successful transactions.
// Pending and failed rows are removed by the FK cascade.
func (r *PostgresRepository) DeleteCampaign(ctx context.Context, campaignID uuid.UUID) error {
	count, err := r.CountSuccessfulTransactions(ctx, campaignID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCampaignHasTransactions
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// FindCampaignByID retrieves a single campaign with its derived donor count.
func (r *PostgresRepository) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	campaign, err := scanCampaign(r.db.QueryRow(ctx, query, campaignID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return campaign, nil
}

// FindActiveCampaign retrieves the single active campaign, if any.
func (r *PostgresRepository) FindActiveCampaign(ctx context.Context) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE is_active = true LIMIT 1`
	campaign, err := scanCampaign(r.db.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveCampaign
		}
		return nil, err
	}
	return campaign, nil
}

// ListCampaigns returns every campaign, newest first.
func (r *PostgresRepository) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]domain.Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *campaign)
	}
	return campaigns, rows.Err()
}

// ActivateExclusively activates the given campaign and deactivates every
// other campaign in one database transaction, preserving the invariant that
// at most one campaign is active. Two concurrent activations can race on the
// partial unique index; the loser's deactivate-then-activate converges on a
// single retry.
func (r *PostgresRepository) ActivateExclusively(ctx context.Context, campaignID uuid.UUID) error {
	err := r.activateExclusively(ctx, campaignID)
	if isUniqueViolation(err) {
		err = r.activateExclusively(ctx, campaignID)
	}
	return err
}

func (r *PostgresRepository) activateExclusively(ctx context.Context, campaignID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE campaigns SET is_active = false WHERE is_active = true AND id <> $1`, campaignID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE campaigns SET is_active = true WHERE id = $1`, campaignID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return tx.Commit(ctx)
}

const transactionColumns = `id, campaign_id, donor_name, donor_message, amount, status, provider_order_code, paid_at, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.CampaignID,
		&t.DonorName,
		&t.DonorMessage,
		&t.Amount,
		&t.Status,
		&t.ProviderOrderCode,
		&t.PaidAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertPendingTransaction records a new ledger row in pending state. The
// uniqueness of provider_order_code is the idempotency anchor for the whole
// reconciliation flow.
func (r *PostgresRepository) InsertPendingTransaction(ctx context.Context, txn *domain.Transaction) error {
	return r.insertTransaction(ctx, txn, domain.StatusPending, nil)
}

// CreateSuccessfulTransaction records a manual (offline) donation directly in
// success state with paid_at set to now.
func (r *PostgresRepository) CreateSuccessfulTransaction(ctx context.Context, txn *domain.Transaction) error {
	now := time.Now().UTC()
	return r.insertTransaction(ctx, txn, domain.StatusSuccess, &now)
}

func (r *PostgresRepository) insertTransaction(ctx context.Context, txn *domain.Transaction, status string, paidAt *time.Time) error {
	query := `
		INSERT INTO donation_transactions
			(id, campaign_id, donor_name, donor_message, amount, status, provider_order_code, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.Status = status
	txn.PaidAt = paidAt
	err := r.db.QueryRow(ctx, query,
		txn.ID,
		txn.CampaignID,
		txn.DonorName,
		txn.DonorMessage,
		txn.Amount,
		txn.Status,
		txn.ProviderOrderCode,
		txn.PaidAt,
	).Scan(&txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateOrderCode
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// FinalizeTransaction transitions a pending transaction to a terminal status.
// The conditional UPDATE guarantees the transition happens exactly once; a
// replay with the same terminal status reports Applied=false, and a replay
// with a conflicting terminal status is an ErrStatusConflict.
func (r *PostgresRepository) FinalizeTransaction(ctx context.Context, orderCode, status string, paidAt time.Time) (*FinalizeResult, error) {
	if status != domain.StatusSuccess && status != domain.StatusFailed {
		return nil, fmt.Errorf("finalize: %q is not a terminal status", status)
	}

	query := `
		UPDATE donation_transactions
		SET status = $2,
		    paid_at = CASE WHEN $2 = 'success' THEN $3 ELSE paid_at END
		WHERE provider_order_code = $1 AND status = 'pending'
		RETURNING ` + transactionColumns
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, orderCode, status, paidAt))
	if err == nil {
		return &FinalizeResult{Applied: true, Transaction: txn}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Zero rows affected: either the order code is unknown, or the row is
	// already terminal. Re-read to tell the cases apart.
	existing, err := r.FindTransactionByOrderCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if existing.Status == status {
		return &FinalizeResult{Applied: false, Transaction: existing}, nil
	}
	return nil, ErrStatusConflict
}

// FindTransactionByOrderCode retrieves a ledger row by its provider order code.
func (r *PostgresRepository) FindTransactionByOrderCode(ctx context.Context, orderCode string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM donation_transactions WHERE provider_order_code = $1`
	txn, err := scanTransaction(r.db.QueryRow(ctx, query, orderCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// ListTransactionsByCampaign returns a page of a campaign's ledger rows,
// newest first, for the admin transaction history screen.
func (r *PostgresRepository) ListTransactionsByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM donation_transactions
		WHERE campaign_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// CountSuccessfulTransactions returns the number of credited donations for a campaign.
func (r *PostgresRepository) CountSuccessfulTransactions(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM donation_transactions WHERE campaign_id = $1 AND status = 'success'`,
		campaignID,
	).Scan(&count)
	return count, err
}

// RecomputeCampaignProgress re-sums the campaign's successful transactions
// into current_amount and returns the new total. Because it is a full re-sum
// rather than an increment, overlapping recomputations converge on the same
// value.
func (r *PostgresRepository) RecomputeCampaignProgress(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	query := `
		UPDATE campaigns
		SET current_amount = (
			SELECT COALESCE(SUM(amount), 0)
			FROM donation_transactions
			WHERE campaign_id = $1 AND status = 'success'
		)
		WHERE id = $1
		RETURNING current_amount
	`
	var total int64
	err := r.db.QueryRow(ctx, query, campaignID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCampaignNotFound
		}
		return 0, err
	}
	return total, nil
}

// ListRecentDonors returns the most recent successful donations across all
// campaigns for the public recent-donors widget.
func (r *PostgresRepository) ListRecentDonors(ctx context.Context, limit int) ([]domain.Donor, error) {
	query := `
		SELECT donor_name, amount, donor_message, paid_at, created_at
		FROM donation_transactions
		WHERE status = 'success'
		ORDER BY paid_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donors := make([]domain.Donor, 0, limit)
	for rows.Next() {
		var (
			name    *string
			donor   domain.Donor
			message *string
		)
		if err := rows.Scan(&name, &donor.Amount, &message, &donor.PaidAt, &donor.CreatedAt); err != nil {
			return nil, err
		}
		if name != nil && *name != "" {
			donor.Name = *name
		} else {
			donor.Name = domain.AnonymousDonor
		}
		donor.Message = message
		donors = append(donors, donor)
	}
	return donors, rows.Err()
}

// LeaderboardEntries groups successful transactions by donor name within the
// requested window. Grouping is case-sensitive. The lifetime total rides
// along so the caller can classify tiers without a second round trip.
func (r *PostgresRepository) LeaderboardEntries(ctx context.Context, opts LeaderboardOptions) ([]LeaderboardRow, error) {
	nameExpr := `donor_name`
	anonymousFilter := `AND donor_name IS NOT NULL AND btrim(donor_name) <> '' AND donor_name <> 'Anonymous'`
	if opts.IncludeAnonymous {
		nameExpr = `COALESCE(NULLIF(btrim(donor_name), ''), 'Anonymous')`
		anonymousFilter = ``
	}

	query := `
		WITH windowed AS (
			SELECT ` + nameExpr + ` AS donor_name,
			       SUM(amount) AS total_amount,
			       COUNT(*) AS donation_count,
			       MIN(paid_at) AS first_paid_at
			FROM donation_transactions
			WHERE status = 'success'
			  AND ($1::timestamptz IS NULL OR paid_at >= $1)
			  ` + anonymousFilter + `
			GROUP BY ` + nameExpr + `
		)
		SELECT w.donor_name, w.total_amount, w.donation_count, w.first_paid_at,
		       (SELECT COALESCE(SUM(t.amount), 0)
		        FROM donation_transactions t
		        WHERE t.status = 'success' AND ` + lifetimeNameMatch(opts.IncludeAnonymous) + `) AS lifetime_total
		FROM windowed w
		ORDER BY w.total_amount DESC, w.first_paid_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, opts.Since, opts.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]LeaderboardRow, 0, opts.Limit)
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.DonorName, &row.TotalAmount, &row.DonationCount, &row.FirstPaidAt, &row.LifetimeTotal); err != nil {
			return nil, err
		}
		entries = append(entries, row)
	}
	return entries, rows.Err()
}

func lifetimeNameMatch(includeAnonymous bool) string {
	if includeAnonymous {
		return `COALESCE(NULLIF(btrim(t.donor_name), ''), 'Anonymous') = w.donor_name`
	}
	return `t.donor_name = w.donor_name`
}

// DonorLifetimeTotal sums every successful donation recorded under the given
// donor name (case-sensitive, matching the leaderboard grouping).
func (r *PostgresRepository) DonorLifetimeTotal(ctx context.Context, donorName string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM donation_transactions WHERE status = 'success' AND donor_name = $1`,
		donorName,
	).Scan(&total)
	return total, err
}
