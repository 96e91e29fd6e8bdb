package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finlyapp/finly-api/internal/domain"
	"github.com/finlyapp/finly-api/internal/handler"
	"github.com/finlyapp/finly-api/internal/infra/cache"
	"github.com/finlyapp/finly-api/internal/infra/memstore"
	"github.com/finlyapp/finly-api/internal/infra/observability"
	"github.com/finlyapp/finly-api/internal/service"

	"go.uber.org/zap"
)

// TestIntegration_FullFlow drives the whole stack over HTTP: register,
// record a week and transactions, schedule a payment, settle it, then
// pull a sync snapshot and check the settlement is reflected.
func TestIntegration_FullFlow(t *testing.T) {
	store := memstore.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	financeSvc := service.NewFinanceService(store, metrics, logger, 10)
	authSvc := service.NewAuthService(store, "integration-secret", time.Hour, logger)
	users := cache.New[domain.User](time.Minute)
	router := handler.NewRouter(financeSvc, authSvc, metrics, users, logger, []string{"*"})

	srv := httptest.NewServer(router)
	defer srv.Close()

	client := srv.Client()

	call := func(method, path, token string, body any) (*http.Response, []byte) {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req, err := http.NewRequest(method, srv.URL+path, &buf)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		var out bytes.Buffer
		out.ReadFrom(resp.Body)
		return resp, out.Bytes()
	}

	// 1. Register
	resp, body := call(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "ana@example.com", "password": "correct-horse",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var auth domain.AuthResponse
	json.Unmarshal(body, &auth)
	token := auth.AccessToken

	// 2. Open the week
	resp, body = call(http.MethodPost, "/v1/weeks", token, map[string]any{
		"week_start_date": "2026-08-31", "opening_balance": "500.00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create week: expected 201, got %d: %s", resp.StatusCode, body)
	}

	// 3. Record income
	resp, body = call(http.MethodPost, "/v1/transactions", token, map[string]any{
		"type": "INCOME", "amount": "1200.00", "date": "2026-08-31",
		"counterparty": "Employer", "method": "TRANSFER",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction: expected 201, got %d: %s", resp.StatusCode, body)
	}

	// 4. Schedule and settle a payment
	resp, body = call(http.MethodPost, "/v1/payments", token, map[string]any{
		"payee": "Internet Provider", "amount": "50.00", "due_date": "2026-09-07",
		"expected_method": "CARD",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payment: expected 201, got %d: %s", resp.StatusCode, body)
	}
	var payment map[string]any
	json.Unmarshal(body, &payment)
	paymentID := payment["id"].(string)

	resp, body = call(http.MethodPost, "/v1/payments/"+paymentID+"/mark-paid", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark paid: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var settled struct {
		Payment     map[string]any `json:"payment"`
		Transaction map[string]any `json:"transaction"`
	}
	json.Unmarshal(body, &settled)
	if settled.Payment["status"] != "PAID" {
		t.Errorf("expected PAID, got %v", settled.Payment["status"])
	}
	if settled.Transaction["amount"] != "50" && settled.Transaction["amount"] != "50.00" {
		t.Errorf("expected settlement amount 50.00, got %v", settled.Transaction["amount"])
	}

	// Settling twice must conflict
	resp, _ = call(http.MethodPost, "/v1/payments/"+paymentID+"/mark-paid", token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second mark paid: expected 409, got %d", resp.StatusCode)
	}

	// 5. Pull the snapshot
	resp, body = call(http.MethodGet, "/v1/sync/pull?since=2026-08-01T00:00:00Z", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pull: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var snap struct {
		Transactions []map[string]any     `json:"transactions"`
		Payments     []map[string]any     `json:"payments"`
		DebugInfo    domain.SyncDebugInfo `json:"debug_info"`
	}
	json.Unmarshal(body, &snap)
	// income + settlement expense
	if len(snap.Transactions) != 2 {
		t.Errorf("expected 2 transactions in snapshot, got %d", len(snap.Transactions))
	}
	if len(snap.Payments) != 1 {
		t.Errorf("expected 1 payment in snapshot, got %d", len(snap.Payments))
	}
	if snap.DebugInfo.SinceParam != "2026-08-01T00:00:00Z" {
		t.Errorf("expected since echoed, got %q", snap.DebugInfo.SinceParam)
	}

	// 6. Push a client batch
	resp, body = call(http.MethodPost, "/v1/sync/push", token, domain.SyncPushRequest{
		Items: []domain.SyncPushItem{
			{EntityType: "transaction", ID: "c0ffee00-0000-0000-0000-000000000001", LastModified: time.Now()},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("push: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var ack domain.SyncPushAck
	json.Unmarshal(body, &ack)
	if ack.Status != "sync complete" {
		t.Errorf("expected 'sync complete', got %q", ack.Status)
	}
}

// TestIntegration_OwnerIsolation verifies cross-user isolation over
// the HTTP surface.
func TestIntegration_OwnerIsolation(t *testing.T) {
	store := memstore.New()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	financeSvc := service.NewFinanceService(store, metrics, logger, 10)
	authSvc := service.NewAuthService(store, "integration-secret", time.Hour, logger)
	users := cache.New[domain.User](time.Minute)
	router := handler.NewRouter(financeSvc, authSvc, metrics, users, logger, []string{"*"})

	srv := httptest.NewServer(router)
	defer srv.Close()

	register := func(email string) string {
		t.Helper()
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(map[string]string{"email": email, "password": "correct-horse"})
		resp, err := srv.Client().Post(srv.URL+"/v1/auth/register", "application/json", &buf)
		if err != nil {
			t.Fatalf("register %s: %v", email, err)
		}
		defer resp.Body.Close()
		var auth domain.AuthResponse
		json.NewDecoder(resp.Body).Decode(&auth)
		return auth.AccessToken
	}

	anaToken := register("ana@example.com")
	bobToken := register("bob@example.com")

	// Ana schedules a payment
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]any{
		"payee": "Rent", "amount": "900.00", "due_date": "2026-09-01",
	})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/payments", &buf)
	req.Header.Set("Authorization", "Bearer "+anaToken)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	var payment map[string]any
	json.NewDecoder(resp.Body).Decode(&payment)
	resp.Body.Close()
	paymentID := payment["id"].(string)

	// Bob cannot settle it
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/v1/payments/"+paymentID+"/mark-paid", nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("cross-owner settle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for cross-owner settle, got %d", resp.StatusCode)
	}

	// Bob's pull sees none of Ana's records
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/sync/pull?since=2026-01-01T00:00:00Z", nil)
	req.Header.Set("Authorization", "Bearer "+bobToken)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	var snap struct {
		Payments []map[string]any `json:"payments"`
	}
	json.NewDecoder(resp.Body).Decode(&snap)
	resp.Body.Close()
	if len(snap.Payments) != 0 {
		t.Fatalf("expected empty payment snapshot for bob, got %d", len(snap.Payments))
	}
}
