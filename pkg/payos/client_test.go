package payos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, "client-id", "api-key", "checksum-key", "https://portal.example/return", "https://portal.example/cancel")
}

func webhookBody(t *testing.T, c *Client, orderCode string, amount int64, status string, signed bool) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"code": "00",
		"desc": "success",
		"data": map[string]interface{}{
			"orderCode": orderCode,
			"amount":    amount,
			"status":    status,
		},
	}
	if signed {
		payload["signature"] = c.SignWebhookData(orderCode, amount, status)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal webhook body: %v", err)
	}
	return body
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	c := testClient("https://api.example")
	body := webhookBody(t, c, "1724990000000123", 50000, "PAID", true)

	event, err := c.VerifyWebhook(body, "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if event.OrderCode != "1724990000000123" {
		t.Errorf("order code = %q", event.OrderCode)
	}
	if event.Status != "success" {
		t.Errorf("status = %q, want success", event.Status)
	}
	if event.Amount != 50000 {
		t.Errorf("amount = %d, want 50000", event.Amount)
	}
}

func TestVerifyWebhook_SignatureFromHeader(t *testing.T) {
	c := testClient("https://api.example")
	body := webhookBody(t, c, "1724990000000123", 50000, "PAID", false)
	signature := c.SignWebhookData("1724990000000123", 50000, "PAID")

	if _, err := c.VerifyWebhook(body, signature); err != nil {
		t.Fatalf("expected header signature to verify, got %v", err)
	}
}

func TestVerifyWebhook_RejectsTamperedAmount(t *testing.T) {
	c := testClient("https://api.example")
	body := webhookBody(t, c, "1724990000000123", 50000, "PAID", true)
	tampered := []byte(strings.Replace(string(body), "50000", "99999", 1))

	if _, err := c.VerifyWebhook(tampered, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhook_RejectsMissingSignature(t *testing.T) {
	c := testClient("https://api.example")
	body := webhookBody(t, c, "1724990000000123", 50000, "PAID", false)

	if _, err := c.VerifyWebhook(body, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhook_RejectsWrongKey(t *testing.T) {
	signer := NewClient("https://api.example", "id", "key", "other-checksum-key", "", "")
	receiver := testClient("https://api.example")
	body := webhookBody(t, signer, "1724990000000123", 50000, "PAID", true)

	if _, err := receiver.VerifyWebhook(body, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhook_MalformedPayloads(t *testing.T) {
	c := testClient("https://api.example")

	cases := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("not-json{")},
		{"missing data", []byte(`{"code":"00","signature":"abc"}`)},
		{"missing order code", []byte(`{"data":{"amount":50000,"status":"PAID"},"signature":"abc"}`)},
	}
	for _, tc := range cases {
		if _, err := c.VerifyWebhook(tc.body, ""); !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("%s: expected ErrMalformedPayload, got %v", tc.name, err)
		}
	}
}

func TestVerifyWebhook_UnknownStatusIsMalformed(t *testing.T) {
	c := testClient("https://api.example")
	body := webhookBody(t, c, "1724990000000123", 50000, "PROCESSING", true)

	if _, err := c.VerifyWebhook(body, ""); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for non-terminal status, got %v", err)
	}
}

func TestVerifyWebhook_TerminalStatusMapping(t *testing.T) {
	c := testClient("https://api.example")
	cases := []struct {
		provider string
		want     string
	}{
		{"PAID", "success"},
		{"CANCELLED", "failed"},
		{"EXPIRED", "failed"},
		{"FAILED", "failed"},
		{"paid", "success"}, // case-insensitive
	}
	for _, tc := range cases {
		body := webhookBody(t, c, "1724990000000123", 50000, tc.provider, true)
		event, err := c.VerifyWebhook(body, "")
		if err != nil {
			t.Errorf("%s: expected nil error, got %v", tc.provider, err)
			continue
		}
		if event.Status != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.provider, event.Status, tc.want)
		}
	}
}

func TestCreateCheckout_RejectsBelowMinimum(t *testing.T) {
	c := testClient("https://api.example")
	if _, _, err := c.CreateCheckout(context.Background(), MinimumAmount-1, "A", ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateCheckout_Success(t *testing.T) {
	var gotPath, gotClientID, gotAPIKey string
	var gotPayload paymentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClientID = r.Header.Get("x-client-id")
		gotAPIKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payment request: %v", err)
		}
		fmt.Fprintf(w, `{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.example/web/%s","orderCode":"%s","status":"PENDING"}}`,
			gotPayload.OrderCode, gotPayload.OrderCode)
	}))
	defer server.Close()

	c := testClient(server.URL)
	checkoutURL, orderCode, err := c.CreateCheckout(context.Background(), 50000, "NguyenVanA", "ủng hộ server")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if gotPath != "/v2/payment-requests" {
		t.Errorf("path = %q", gotPath)
	}
	if gotClientID != "client-id" || gotAPIKey != "api-key" {
		t.Errorf("auth headers = %q / %q", gotClientID, gotAPIKey)
	}
	if orderCode == "" || gotPayload.OrderCode != orderCode {
		t.Errorf("order code mismatch: returned %q, sent %q", orderCode, gotPayload.OrderCode)
	}
	if !strings.HasSuffix(checkoutURL, orderCode) {
		t.Errorf("checkout url %q does not reference order code %q", checkoutURL, orderCode)
	}
	if gotPayload.Amount != 50000 {
		t.Errorf("amount = %d, want 50000", gotPayload.Amount)
	}
	if gotPayload.Signature == "" {
		t.Error("expected signed payment request")
	}
	if !strings.Contains(gotPayload.Description, "NguyenVanA") {
		t.Errorf("description %q does not carry the donor name", gotPayload.Description)
	}
}

func TestCreateCheckout_GatewayErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"429","desc":"too many requests"}`)
	}))
	defer server.Close()

	c := testClient(server.URL)
	if _, _, err := c.CreateCheckout(context.Background(), 50000, "A", ""); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCreateCheckout_GatewayDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := testClient(server.URL)
	c.HTTPClient.Timeout = time.Second
	if _, _, err := c.CreateCheckout(context.Background(), 50000, "A", ""); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}
