package bet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mepflip/internal/model"
)

func TestHTTPRelayDistribute(t *testing.T) {
	var got distributeBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/distribute" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"msg":"1000000000000 $MEP transferred successfully to ` + got.WalletAddress + `","response":{"transactionHash":"0xabc","blockNumber":500,"status":1,"gasUsed":60000}}`))
	}))
	defer server.Close()

	relay := NewHTTPRelay(server.URL, nil)
	result, err := relay.Distribute(context.Background(), testPlayerAddr, 1_000_000_000_000, model.SideHeads, "req-1")
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if got.WalletAddress != testPlayerAddr || got.BetAmount != 1_000_000_000_000 || got.Choice != model.SideHeads || got.RequestID != "req-1" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestHTTPRelayFailureEnvelopeIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"msg":"Transfer request failed","err":"execution reverted"}`))
	}))
	defer server.Close()

	relay := NewHTTPRelay(server.URL, nil)
	result, err := relay.Distribute(context.Background(), testPlayerAddr, 100, model.SideTails, "")
	if err != nil {
		t.Fatalf("expected envelope, got error: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure envelope")
	}
	if result.Msg != "Transfer request failed" {
		t.Fatalf("unexpected msg: %q", result.Msg)
	}
}

func TestHTTPRelayRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/refund" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"response":"Refund successful"}`))
	}))
	defer server.Close()

	relay := NewHTTPRelay(server.URL, nil)
	result, err := relay.Refund(context.Background(), testPlayerAddr, 100)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	var response string
	if err := json.Unmarshal(result.Response, &response); err != nil {
		t.Fatalf("decode response field: %v", err)
	}
	if response != "Refund successful" {
		t.Fatalf("unexpected response: %q", response)
	}
}

func TestHTTPRelayGarbageBodyIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	relay := NewHTTPRelay(server.URL, nil)
	if _, err := relay.Refund(context.Background(), testPlayerAddr, 100); err == nil {
		t.Fatalf("expected decode error")
	}
}
