/**
 * @description
 * This file defines the Go structs that model incoming webhook payloads from
 * the payment provider. These structures are essential for safely unmarshaling
 * the JSON received at the webhook endpoint and reconciling it against the
 * ledger in a type-safe manner.
 *
 * @notes
 * - WebhookEvent is the validated, parsed result the reconciliation engine
 *   consumes. The raw provider envelope lives in pkg/payos, next to the
 *   signature verification that produces it.
 */
package domain

import "time"

// WebhookEvent is a verified payment-provider callback, carrying the
// provider order code, the terminal status reported for it, and the amount
// the provider says was paid.
type WebhookEvent struct {
	OrderCode  string    `json:"orderCode"`
	Status     string    `json:"status"` // success or failed
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DonationCompletedEvent is the internal event published to RabbitMQ after a
// donation has been credited to the ledger exactly once.
type DonationCompletedEvent struct {
	OrderCode  string    `json:"order_code"`
	CampaignID string    `json:"campaign_id"`
	DonorName  string    `json:"donor_name"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// AmountMismatchAlert is the operational alert published when a webhook
// reports an amount different from the pending ledger row. The transaction
// is left pending for manual review; it is never auto-credited or auto-failed.
type AmountMismatchAlert struct {
	OrderCode      string    `json:"order_code"`
	ExpectedAmount int64     `json:"expected_amount"`
	ReportedAmount int64     `json:"reported_amount"`
	Timestamp      time.Time `json:"timestamp"`
}
