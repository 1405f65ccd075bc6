package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// CouncilRunner triggers a council run for one market.
type CouncilRunner interface {
	RunForMarket(ctx context.Context, marketID string) (domain.CouncilPrediction, error)
}

// CouncilHandler starts council runs in the background. Runs outlive the
// request and are bound to the handler's base context; results reach clients
// over the WebSocket feed.
type CouncilHandler struct {
	base    context.Context
	runner  CouncilRunner
	markets MarketService
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewCouncilHandler creates a CouncilHandler. Cancelling base cancels every
// run it started.
func NewCouncilHandler(base context.Context, runner CouncilRunner, markets MarketService, logger *slog.Logger) *CouncilHandler {
	return &CouncilHandler{
		base:     base,
		runner:   runner,
		markets:  markets,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]bool),
	}
}

// Run validates the market and starts a council run for it.
// POST /api/council/{marketId}/run
func (h *CouncilHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("marketId")

	m, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusNotFound {
			writeError(w, code, "market not found")
			return
		}
		writeError(w, code, "failed to load market")
		return
	}
	if m.Status != domain.MarketStatusActive {
		writeError(w, http.StatusConflict, "market is not active")
		return
	}

	h.mu.Lock()
	if h.inflight[id] {
		h.mu.Unlock()
		writeError(w, http.StatusConflict, "council run already in progress")
		return
	}
	h.inflight[id] = true
	h.mu.Unlock()

	trigger := domain.TriggerFrom(r.Context())
	h.wg.Add(1)
	go h.run(id, trigger)

	h.logger.InfoContext(r.Context(), "handler: council run accepted",
		slog.String("market_id", id),
		slog.String("trigger", trigger),
	)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"marketId":    id,
		"requestedAt": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *CouncilHandler) run(id, trigger string) {
	defer h.wg.Done()
	defer func() {
		h.mu.Lock()
		delete(h.inflight, id)
		h.mu.Unlock()
	}()

	ctx := h.base
	if trigger != "" {
		ctx = domain.WithTrigger(ctx, trigger)
	}
	if _, err := h.runner.RunForMarket(ctx, id); err != nil {
		h.logger.Error("handler: council run failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Wait blocks until every run started by the handler has returned.
func (h *CouncilHandler) Wait() {
	h.wg.Wait()
}
