package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/notify"
)

// DefaultLockTTL bounds a council run lock when the caller does not set one.
const DefaultLockTTL = 10 * time.Minute

// Council runs one council over one market.
type Council interface {
	Run(ctx context.Context, market domain.Market) (domain.CouncilPrediction, error)
}

// CouncilDeps wires a CouncilService. Predictions is required; every other
// collaborator is optional and skipped when nil.
type CouncilDeps struct {
	Markets     *MarketService
	Council     Council
	Predictions domain.PredictionStore
	Cache       domain.PredictionCache
	Archive     domain.PredictionArchive
	Locks       domain.LockManager
	Bus         domain.SignalBus
	Audit       domain.AuditStore
	Notifier    *notify.Notifier
	LockTTL     time.Duration
}

// CouncilService runs councils for stored markets and fans the results out
// to persistence, cache, archive, bus and notifications.
type CouncilService struct {
	deps   CouncilDeps
	logger *slog.Logger
}

// NewCouncilService creates a CouncilService. Nil optional dependencies
// are skipped and a zero LockTTL uses DefaultLockTTL.
func NewCouncilService(deps CouncilDeps, logger *slog.Logger) *CouncilService {
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultLockTTL
	}
	return &CouncilService{
		deps:   deps,
		logger: logger.With(slog.String("component", "council_service")),
	}
}

func councilLockKey(marketID string) string {
	return "council:" + marketID
}

// RunForMarket runs the council for one active market and persists the
// result. Only persistence failures fail the call once the council has
// produced a prediction.
func (s *CouncilService) RunForMarket(ctx context.Context, marketID string) (domain.CouncilPrediction, error) {
	m, err := s.deps.Markets.GetMarket(ctx, marketID)
	if err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("council_service: %w", err)
	}
	if m.Status != domain.MarketStatusActive {
		return domain.CouncilPrediction{}, fmt.Errorf("council_service: %s (%s): %w", m.ID, m.Status, domain.ErrMarketClosed)
	}

	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.Acquire(ctx, councilLockKey(m.ID), s.deps.LockTTL)
		if err != nil {
			return domain.CouncilPrediction{}, fmt.Errorf("council_service: lock %s: %w", m.ID, err)
		}
		defer unlock()
	}

	s.logger.InfoContext(ctx, "council run started",
		slog.String("market_id", m.ID),
		slog.String("title", m.Title),
	)

	p, err := s.deps.Council.Run(ctx, m)
	if err != nil {
		s.audit(ctx, "council.failed", map[string]any{
			"market_id": m.ID,
			"error":     err.Error(),
		})
		if errors.Is(err, domain.ErrCouncilFailed) {
			s.notify(ctx, notify.FailureAlert(m, err))
		}
		return domain.CouncilPrediction{}, fmt.Errorf("council_service: run %s: %w", m.ID, err)
	}

	if err := s.deps.Predictions.Save(ctx, p); err != nil {
		return p, fmt.Errorf("council_service: save %s: %w", m.ID, err)
	}

	s.publish(ctx, m, p)
	return p, nil
}

// publish performs the best-effort side effects of a saved prediction.
func (s *CouncilService) publish(ctx context.Context, m domain.Market, p domain.CouncilPrediction) {
	log := s.logger.With(slog.String("market_id", m.ID), slog.String("prediction_id", p.ID))

	if s.deps.Archive != nil {
		if path, err := s.deps.Archive.Store(ctx, p); err != nil {
			log.WarnContext(ctx, "archive prediction failed", slog.String("error", err.Error()))
		} else {
			log.DebugContext(ctx, "prediction archived", slog.String("path", path))
		}
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetLatest(ctx, p); err != nil {
			log.WarnContext(ctx, "cache latest prediction failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Bus != nil {
		payload, err := json.Marshal(p)
		if err != nil {
			log.WarnContext(ctx, "marshal prediction failed", slog.String("error", err.Error()))
		} else {
			if err := s.deps.Bus.Publish(ctx, domain.ChannelPredictions, payload); err != nil {
				log.WarnContext(ctx, "publish prediction failed", slog.String("error", err.Error()))
			}
			if err := s.deps.Bus.StreamAppend(ctx, domain.StreamPredictions, payload); err != nil {
				log.WarnContext(ctx, "stream prediction failed", slog.String("error", err.Error()))
			}
		}
	}

	s.audit(ctx, "council.completed", map[string]any{
		"market_id":      m.ID,
		"prediction_id":  p.ID,
		"successful":     p.Metadata.SuccessfulMembers,
		"failed_members": p.Metadata.FailedMembers,
		"duration_ms":    p.Metadata.TotalDurationMs,
	})

	s.notify(ctx, notify.CouncilAlert(m, p))

	log.InfoContext(ctx, "council run completed",
		slog.Int("successful", p.Metadata.SuccessfulMembers),
		slog.Int("failed", len(p.Metadata.FailedMembers)),
		slog.Int64("duration_ms", p.Metadata.TotalDurationMs),
	)
}

func (s *CouncilService) audit(ctx context.Context, event string, detail map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	if trigger := domain.TriggerFrom(ctx); trigger != "" {
		detail["trigger"] = trigger
	}
	if err := s.deps.Audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CouncilService) notify(ctx context.Context, a notify.Alert) {
	if err := s.deps.Notifier.Notify(ctx, a); err != nil {
		s.logger.WarnContext(ctx, "notify failed",
			slog.String("event", a.Event),
			slog.String("error", err.Error()),
		)
	}
}

// MarketResult is the outcome of one market within a sweep.
type MarketResult struct {
	MarketID   string
	Prediction domain.CouncilPrediction
	Err        error
}

// SweepSummary reports a RunAllActive pass.
type SweepSummary struct {
	Results   []MarketResult
	Succeeded int
	Failed    int
}

// RunAllActive runs the council for every active market in turn. A failing
// market is logged and counted; only cancellation of ctx stops the sweep.
func (s *CouncilService) RunAllActive(ctx context.Context) (SweepSummary, error) {
	markets, err := s.deps.Markets.ListActive(ctx, domain.ListOpts{})
	if err != nil {
		return SweepSummary{}, fmt.Errorf("council_service: sweep: %w", err)
	}

	var summary SweepSummary
	for _, m := range markets {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("council_service: sweep: %w", err)
		}
		p, err := s.RunForMarket(ctx, m.ID)
		summary.Results = append(summary.Results, MarketResult{MarketID: m.ID, Prediction: p, Err: err})
		if err != nil {
			summary.Failed++
			s.logger.ErrorContext(ctx, "council run failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		summary.Succeeded++
	}

	s.logger.InfoContext(ctx, "sweep finished",
		slog.Int("markets", len(markets)),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// Latest returns the newest prediction for a market: cache, then store, then
// the archive.
func (s *CouncilService) Latest(ctx context.Context, marketID string) (domain.CouncilPrediction, error) {
	if s.deps.Cache != nil {
		p, err := s.deps.Cache.GetLatest(ctx, marketID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "prediction cache get failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	p, err := s.deps.Predictions.Latest(ctx, marketID)
	if errors.Is(err, domain.ErrNotFound) && s.deps.Archive != nil {
		p, err = s.deps.Archive.Latest(ctx, marketID)
	}
	if err != nil {
		return domain.CouncilPrediction{}, fmt.Errorf("council_service: latest %q: %w", marketID, err)
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetLatest(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "prediction cache set failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// History lists a market's predictions, newest first. When the store has
// nothing for the first page, archived predictions are served instead.
func (s *CouncilService) History(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.CouncilPrediction, error) {
	ps, err := s.deps.Predictions.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("council_service: history %q: %w", marketID, err)
	}
	if len(ps) > 0 || opts.Offset > 0 || s.deps.Archive == nil {
		return ps, nil
	}

	ps, err = s.deps.Archive.History(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("council_service: archived history %q: %w", marketID, err)
	}
	if opts.Limit > 0 && len(ps) > opts.Limit {
		ps = ps[:opts.Limit]
	}
	return ps, nil
}
