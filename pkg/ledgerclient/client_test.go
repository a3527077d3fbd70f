package ledgerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransferToSuccess(t *testing.T) {
	var captured TransferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transfers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-ledger-key") != "key-1" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"block_index": 42, "status": "completed"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1")
	block, err := client.TransferTo(context.Background(), "alice", 500, "harvest")
	if err != nil {
		t.Fatalf("TransferTo: %v", err)
	}
	if block != 42 {
		t.Fatalf("block index: got %d", block)
	}
	if captured.Currency != CurrencyPanda || captured.To != "alice" || captured.Amount != 500 {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
}

func TestICPTransferFromUsesICPCurrency(t *testing.T) {
	var captured TransferRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transfers/from" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"block_index": 7}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1")
	if _, err := client.ICPTransferFrom(context.Background(), "alice", 100, "wager"); err != nil {
		t.Fatalf("ICPTransferFrom: %v", err)
	}
	if captured.Currency != CurrencyICP || captured.From != "alice" {
		t.Fatalf("unexpected request payload: %+v", captured)
	}
}

func TestTransferErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]string{{"title": "InsufficientFunds", "detail": "balance too low"}}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1")
	_, err := client.TransferTo(context.Background(), "alice", 500, "harvest")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ErrorResponse, got %T", err)
	}
	if apiErr.Errors[0].Title != "InsufficientFunds" {
		t.Fatalf("unexpected error payload: %+v", apiErr)
	}
}

func TestBalanceOf(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/balance/alice" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"balance": 123456}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1")
	balance, err := client.BalanceOf(context.Background(), "alice")
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if balance != 123456 {
		t.Fatalf("balance: got %d", balance)
	}
}
