package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"botboard/internal/domain"
)

// Refresher keeps a cached statistics snapshot per account, recomputing on
// a fixed interval and on demand. At most one refresh per account is in
// flight at a time; requests arriving while one is running are coalesced
// into it rather than queued. Overlapping recomputations would be harmless
// (the computation is idempotent) but duplicate fetch work is avoided.
type Refresher struct {
	service  *Service
	accounts []string
	interval time.Duration
	log      *slog.Logger

	mu       sync.RWMutex
	cache    map[string]domain.Stats
	inflight map[string]bool
}

// NewRefresher creates a Refresher for the given account IDs. interval of 0
// defaults to one minute, matching the dashboard's polling cadence.
func NewRefresher(service *Service, accounts []string, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		service:  service,
		accounts: accounts,
		interval: interval,
		log:      slog.Default().With("component", "stats-refresher"),
		cache:    make(map[string]domain.Stats),
		inflight: make(map[string]bool),
	}
}

// Latest returns the most recently computed snapshot for an account, with
// ok=false when none has completed yet.
func (r *Refresher) Latest(accountID string) (domain.Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.cache[accountID]
	return snap, ok
}

// Refresh recomputes the snapshot for one account and caches it. If a
// refresh for the same account is already in flight the call returns
// immediately without starting another; the running one will populate the
// cache for both callers.
func (r *Refresher) Refresh(ctx context.Context, accountID string) {
	r.mu.Lock()
	if r.inflight[accountID] {
		r.mu.Unlock()
		return
	}
	r.inflight[accountID] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inflight[accountID] = false
		r.mu.Unlock()
	}()

	snap, err := r.service.Snapshot(ctx, accountID)
	if err != nil {
		r.log.Warn("refresh failed", "account", accountID, "error", err)
		return
	}
	r.mu.Lock()
	r.cache[accountID] = snap
	r.mu.Unlock()

	if snap.Divergences > 0 {
		r.log.Warn("order log divergence detected",
			"account", accountID, "divergences", snap.Divergences)
	}
	if snap.MalformedOrders > 0 {
		r.log.Warn("malformed orders discarded during replay",
			"account", accountID, "count", snap.MalformedOrders)
	}
}

// Run refreshes all configured accounts immediately and then on every
// interval tick until ctx is cancelled. An in-progress refresh finishes
// once started; cancellation takes effect between runs.
func (r *Refresher) Run(ctx context.Context) {
	r.refreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresher stopped")
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	for _, id := range r.accounts {
		r.Refresh(ctx, id)
	}
}
