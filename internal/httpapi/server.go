package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"botboard/internal/domain"
	"botboard/internal/fifo"
	"botboard/internal/ledger"
	"botboard/internal/perf"
	"botboard/internal/prices"
	"botboard/internal/stats"
	"botboard/internal/store"
)

// defaultPerformanceDays bounds the performance endpoint when no range is
// requested.
const defaultPerformanceDays = 90

// OrderSubmitter places validated orders on the ledger. ledger.Submitter
// satisfies it.
type OrderSubmitter interface {
	Submit(ctx context.Context, req ledger.OrderRequest) (domain.Order, error)
}

// DashboardServer serves the bot dashboard HTTP API.
type DashboardServer struct {
	refresher *stats.Refresher
	submitter OrderSubmitter
	orders    store.OrderStore
	positions store.PositionStore
	prices    prices.Source
	archive   *perf.Archive
	log       *slog.Logger
}

// NewDashboardServer creates a DashboardServer. archive may be nil when no
// performance history is kept.
func NewDashboardServer(
	refresher *stats.Refresher,
	submitter OrderSubmitter,
	orders store.OrderStore,
	positions store.PositionStore,
	priceSource prices.Source,
	archive *perf.Archive,
) *DashboardServer {
	return &DashboardServer{
		refresher: refresher,
		submitter: submitter,
		orders:    orders,
		positions: positions,
		prices:    priceSource,
		archive:   archive,
		log:       slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/bots/{id}/stats", s.handleStats)
	mux.HandleFunc("GET /api/bots/{id}/positions", s.handlePositions)
	mux.HandleFunc("GET /api/bots/{id}/orders", s.handleListOrders)
	mux.HandleFunc("POST /api/bots/{id}/orders", s.handleSubmitOrder)
	mux.HandleFunc("GET /api/bots/{id}/performance", s.handlePerformance)
	mux.HandleFunc("GET /api/prices/{symbol}", s.handlePrice)
}

// Handler returns an http.Handler with CORS middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleStats serves the cached statistics snapshot. ?refresh=1 recomputes
// before responding; a bot with no cached snapshot yet is computed on the
// spot either way.
func (s *DashboardServer) handleStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if r.URL.Query().Get("refresh") == "1" {
		s.refresher.Refresh(r.Context(), id)
	}
	snap, ok := s.refresher.Latest(id)
	if !ok {
		s.refresher.Refresh(r.Context(), id)
		snap, ok = s.refresher.Latest(id)
	}
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("stats unavailable for %s", id))
		return
	}
	writeJSON(w, snap)
}

func (s *DashboardServer) handlePositions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	positions, err := s.positions.ListPositions(r.Context(), id)
	if err != nil {
		s.log.Error("listing positions", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, positions)
}

// handleListOrders serves the order log oldest-first. ?limit=N keeps only
// the newest N entries.
func (s *DashboardServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	orders, err := s.orders.ListOrders(r.Context(), id)
	if err != nil {
		s.log.Error("listing orders", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if len(orders) > limit {
			orders = orders[len(orders)-limit:]
		}
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, orders)
}

// handleSubmitOrder is the write entry point of the API: it validates the
// request, settles it against the ledger in one transaction, and returns
// the recorded order.
func (s *DashboardServer) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var body SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := s.submitter.Submit(r.Context(), ledger.OrderRequest{
		AccountID: id,
		Symbol:    strings.ToUpper(body.Symbol),
		Side:      domain.OrderSide(body.Side),
		Qty:       body.Qty,
		FillPrice: body.FillPrice,
		Type:      domain.OrderType(body.Type),
		Timestamp: body.Timestamp,
		Extra:     body.Extra,
	})
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(order)
	case errors.Is(err, fifo.ErrInsufficientLots):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrInvalidQty),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, ledger.ErrInvalidSide):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("order submission failed", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "order submission failed")
	}
}

func (s *DashboardServer) handlePerformance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.archive == nil {
		writeJSON(w, PerformanceResponse{AccountID: id, Points: []perf.Point{}})
		return
	}

	days := defaultPerformanceDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		n, err := strconv.Atoi(daysStr)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	points, err := s.archive.Recent(r.Context(), id, days)
	if err != nil {
		s.log.Error("reading performance history", "account", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read performance history")
		return
	}
	if points == nil {
		points = []perf.Point{}
	}
	writeJSON(w, PerformanceResponse{AccountID: id, Points: points})
}

func (s *DashboardServer) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	price, ok, err := s.prices.LatestClose(r.Context(), symbol)
	if err != nil {
		s.log.Error("price lookup failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "price lookup failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no price for %s", symbol))
		return
	}
	writeJSON(w, PriceResponse{Symbol: symbol, Price: price})
}
