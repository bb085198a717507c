/**
 * @description
 * This package provides a client for the PayOS hosted-checkout gateway. It
 * encapsulates creating checkout sessions (payment links) and verifying the
 * authenticity of inbound webhook callbacks. Verification is pure: it never
 * touches the ledger, it only parses and authenticates.
 *
 * @dependencies
 * - bytes, context, crypto/hmac, crypto/sha256, encoding/hex, encoding/json,
 *   fmt, net/http, time: Standard Go libraries.
 *
 * @notes
 * - All gateway calls carry a bounded timeout and fail closed with
 *   ErrGatewayUnavailable rather than hang; the webhook flow is idempotent
 *   downstream, so the provider is free to retry.
 */
package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// MinimumAmount is the smallest donation the gateway accepts, in VND.
const MinimumAmount int64 = 10_000

var (
	ErrInvalidAmount      = errors.New("amount is below the gateway minimum")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrMalformedPayload   = errors.New("malformed webhook payload")
)

// Client is a client for the PayOS API.
type Client struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	ReturnURL   string
	CancelURL   string
	HTTPClient  *http.Client
}

// NewClient creates a new PayOS client with the recommended 10s timeout.
func NewClient(baseURL, clientID, apiKey, checksumKey, returnURL, cancelURL string) *Client {
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		ClientID:    clientID,
		APIKey:      apiKey,
		ChecksumKey: checksumKey,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// paymentRequest is the payload for creating a PayOS payment link.
type paymentRequest struct {
	OrderCode   string `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Signature   string `json:"signature"`
}

// paymentResponse is the expected response from the payment-requests endpoint.
type paymentResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL string `json:"checkoutUrl"`
		OrderCode   string `json:"orderCode"`
		Status      string `json:"status"`
	} `json:"data"`
}

// webhookEnvelope is the raw provider callback before verification.
type webhookEnvelope struct {
	Code      string           `json:"code"`
	Desc      string           `json:"desc"`
	Data      *webhookData     `json:"data"`
	Signature string           `json:"signature"`
	Raw       *json.RawMessage `json:"-"`
}

type webhookData struct {
	OrderCode           string `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Status              string `json:"status"` // PAID, CANCELLED, EXPIRED, FAILED
	TransactionDateTime string `json:"transactionDateTime"`
}

// WebhookEvent is the verified, parsed result of a provider callback.
type WebhookEvent struct {
	OrderCode  string
	Status     string // "success" or "failed"
	Amount     int64
	OccurredAt time.Time
}

// CreateCheckout creates a hosted checkout session for a donation and
// returns the URL the donor should be redirected to, plus the generated
// order code that later ties the webhook back to the ledger row.
func (c *Client) CreateCheckout(ctx context.Context, amount int64, donorName, message string) (checkoutURL, orderCode string, err error) {
	if amount < MinimumAmount {
		return "", "", ErrInvalidAmount
	}

	orderCode = newOrderCode()
	description := buildDescription(donorName, message)
	payload := paymentRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		ReturnURL:   c.ReturnURL,
		CancelURL:   c.CancelURL,
	}
	payload.Signature = c.sign(fmt.Sprintf(
		"amount=%d&cancelUrl=%s&description=%s&orderCode=%s&returnUrl=%s",
		payload.Amount, payload.CancelURL, payload.Description, payload.OrderCode, payload.ReturnURL,
	))

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v2/payment-requests", bytes.NewBuffer(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.ClientID)
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("level=warn component=payos_client op=create_checkout msg=\"gateway unreachable\" err=%v", err)
		return "", "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read checkout response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=payos_client op=create_checkout status=%d msg=\"non-2xx response\"", resp.StatusCode)
		return "", "", fmt.Errorf("%w: gateway returned status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var parsed paymentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if parsed.Code != "00" {
		log.Printf("level=warn component=payos_client op=create_checkout code=%s desc=%q", parsed.Code, parsed.Desc)
		return "", "", fmt.Errorf("%w: gateway error %s (%s)", ErrGatewayUnavailable, parsed.Code, parsed.Desc)
	}
	if parsed.Data.CheckoutURL == "" {
		return "", "", fmt.Errorf("%w: checkout url missing from gateway response", ErrGatewayUnavailable)
	}

	return parsed.Data.CheckoutURL, orderCode, nil
}

// VerifyWebhook authenticates and parses a provider callback. The signature
// is HMAC-SHA256 over the canonical data fields with the pre-shared checksum
// key, carried in the body or the x-payos-signature header. On success the
// returned event reports "success" or "failed"; any other provider status is
// treated as malformed because webhooks only announce terminal outcomes.
func (c *Client) VerifyWebhook(rawPayload []byte, signatureHeader string) (*WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(rawPayload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if envelope.Data == nil || envelope.Data.OrderCode == "" {
		return nil, ErrMalformedPayload
	}

	signature := envelope.Signature
	if signature == "" {
		signature = strings.TrimSpace(signatureHeader)
	}
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	expected := c.sign(canonicalWebhookData(envelope.Data))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	var status string
	switch strings.ToUpper(strings.TrimSpace(envelope.Data.Status)) {
	case "PAID":
		status = "success"
	case "CANCELLED", "EXPIRED", "FAILED":
		status = "failed"
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedPayload, envelope.Data.Status)
	}

	occurredAt := time.Now().UTC()
	if envelope.Data.TransactionDateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, envelope.Data.TransactionDateTime); err == nil {
			occurredAt = parsed
		}
	}

	return &WebhookEvent{
		OrderCode:  envelope.Data.OrderCode,
		Status:     status,
		Amount:     envelope.Data.Amount,
		OccurredAt: occurredAt,
	}, nil
}

// SignWebhookData computes the signature the provider would attach to the
// given webhook fields. Exposed for tests and local webhook simulation.
func (c *Client) SignWebhookData(orderCode string, amount int64, status string) string {
	return c.sign(canonicalWebhookData(&webhookData{OrderCode: orderCode, Amount: amount, Status: status}))
}

func canonicalWebhookData(data *webhookData) string {
	return fmt.Sprintf("amount=%d&orderCode=%s&status=%s", data.Amount, data.OrderCode, strings.ToUpper(strings.TrimSpace(data.Status)))
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.ChecksumKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func buildDescription(donorName, message string) string {
	name := strings.TrimSpace(donorName)
	if name == "" {
		name = "Anonymous"
	}
	description := "Donate - " + name
	if trimmed := strings.TrimSpace(message); trimmed != "" {
		description += ": " + trimmed
	}
	// PayOS caps description length; truncate instead of rejecting.
	if len(description) > 250 {
		description = description[:250]
	}
	return description
}

// newOrderCode generates a unique numeric order code. Millisecond timestamp
// plus a random suffix keeps codes unique across concurrent checkouts while
// staying within the gateway's numeric limits.
func newOrderCode() string {
	return fmt.Sprintf("%d%03d", time.Now().UnixMilli(), rand.Intn(1000))
}
