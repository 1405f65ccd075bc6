package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// PredictionService reads stored council predictions.
type PredictionService interface {
	Latest(ctx context.Context, marketID string) (domain.CouncilPrediction, error)
	History(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.CouncilPrediction, error)
}

// PredictionHandler serves prediction endpoints.
type PredictionHandler struct {
	predictions PredictionService
	logger      *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler that serves council
// predictions.
func NewPredictionHandler(predictions PredictionService, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, logger: logger}
}

// Latest returns the newest prediction for a market.
// GET /api/predictions/{marketId}/latest
func (h *PredictionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("marketId")
	p, err := h.predictions.Latest(r.Context(), id)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusNotFound {
			writeError(w, code, "no prediction for market")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: latest prediction failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, code, "failed to load prediction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prediction": p})
}

// History returns a market's predictions, newest first.
// GET /api/predictions/{marketId}?limit=50&offset=0
func (h *PredictionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("marketId")
	opts := parseListOpts(r)
	ps, err := h.predictions.History(r.Context(), id, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: prediction history failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, statusFor(err), "failed to load predictions")
		return
	}
	if ps == nil {
		ps = []domain.CouncilPrediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"predictions": ps,
		"limit":       opts.Limit,
		"offset":      opts.Offset,
	})
}
