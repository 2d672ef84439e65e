package botboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"botboard/internal/domain"
	"botboard/internal/httpapi"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080")
	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q, want http://localhost:8080", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestGetStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bots/bot-1/stats" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("refresh") != "1" {
			t.Error("refresh=1 not passed through")
		}
		json.NewEncoder(w).Encode(domain.Stats{AccountID: "bot-1", TotalPnL: 25})
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).GetStats(context.Background(), "bot-1", true)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if snap.AccountID != "bot-1" || snap.TotalPnL != 25 {
		t.Errorf("snap = %+v, want bot-1 with pnl 25", snap)
	}
}

func TestGetOrdersLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q, want 5", r.URL.Query().Get("limit"))
		}
		json.NewEncoder(w).Encode([]domain.Order{{ID: "o1"}})
	}))
	defer srv.Close()

	orders, err := NewClient(srv.URL).GetOrders(context.Background(), "bot-1", 5)
	if err != nil {
		t.Fatalf("GetOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "o1" {
		t.Errorf("orders = %+v, want one order o1", orders)
	}
}

func TestSubmitOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body httpapi.SubmitOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if body.Symbol != "AAPL" || body.Qty != 2 {
			t.Errorf("body = %+v, want AAPL qty 2", body)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Order{ID: "o1", Symbol: "AAPL"})
	}))
	defer srv.Close()

	order, err := NewClient(srv.URL).SubmitOrder(context.Background(), "bot-1", httpapi.SubmitOrderRequest{
		Symbol: "AAPL", Side: "buy", Qty: 2, FillPrice: 100,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if order.ID != "o1" {
		t.Errorf("order = %+v, want ID o1", order)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "insufficient lots"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SubmitOrder(context.Background(), "bot-1", httpapi.SubmitOrderRequest{
		Symbol: "AAPL", Side: "sell", Qty: 5, FillPrice: 100,
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Message != "insufficient lots" {
		t.Errorf("message = %q, want insufficient lots", apiErr.Message)
	}
}

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/prices/AAPL" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(httpapi.PriceResponse{Symbol: "AAPL", Price: 210})
	}))
	defer srv.Close()

	pr, err := NewClient(srv.URL).GetPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if pr.Price != 210 {
		t.Errorf("price = %v, want 210", pr.Price)
	}
}
