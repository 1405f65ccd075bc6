package council

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// AgentRunner produces one member's forecast.
type AgentRunner interface {
	Run(ctx context.Context, member domain.AgentIdentity, market domain.Market) (domain.AgentPrediction, error)
}

// Recorder observes council runs. Implementations must be safe for
// concurrent use.
type Recorder interface {
	MemberSettled(member string, kind string, d time.Duration)
	CouncilSettled(outcome string, succeeded, failed int, d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) MemberSettled(string, string, time.Duration)    {}
func (noopRecorder) CouncilSettled(string, int, int, time.Duration) {}

// Outcome labels passed to Recorder.
const (
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
	memberSucceeded = "ok"
)

// Coordinator fans a market out to every enabled member and aggregates the
// forecasts that come back.
type Coordinator struct {
	members    *Membership
	runner     AgentRunner
	logger     *slog.Logger
	recorder   Recorder
	now        func() time.Time
	newID      func() string
	runTimeout time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder attaches run metrics.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator overrides the prediction id source.
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) { c.newID = gen }
}

// WithRunTimeout bounds a whole council run. Zero means no outer deadline;
// members are still bounded by their per-phase timeouts.
func WithRunTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.runTimeout = d }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(members *Membership, runner AgentRunner, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		members:  members,
		runner:   runner,
		logger:   logger,
		recorder: noopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Members returns the roster the coordinator dispatches to.
func (c *Coordinator) Members() *Membership { return c.members }

type settlement struct {
	member     domain.AgentIdentity
	prediction domain.AgentPrediction
	err        error
	elapsed    time.Duration
}

// Run executes the council against market. Individual member failures are
// tolerated; the run fails with domain.ErrCouncilFailed only when no member
// succeeds. Member predictions appear in the order members finished.
func (c *Coordinator) Run(ctx context.Context, market domain.Market) (domain.CouncilPrediction, error) {
	start := c.now()
	enabled := c.members.Enabled()
	logger := c.logger.With(slog.String("market_id", market.ID))

	if len(enabled) == 0 {
		c.recorder.CouncilSettled(OutcomeFailed, 0, 0, 0)
		return domain.CouncilPrediction{}, fmt.Errorf("%w: no enabled council members", domain.ErrCouncilFailed)
	}

	runCtx := ctx
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "council dispatching", slog.Int("members", len(enabled)))

	settled := make(chan settlement, len(enabled))
	var wg sync.WaitGroup
	for _, member := range enabled {
		wg.Add(1)
		go func(member domain.AgentIdentity) {
			defer wg.Done()
			settled <- c.runMember(runCtx, member, market)
		}(member)
	}
	go func() {
		wg.Wait()
		close(settled)
	}()

	var (
		predictions []domain.AgentPrediction
		failedNames []string
		failures    []error
	)
	for s := range settled {
		if s.err != nil {
			failedNames = append(failedNames, s.member.DisplayName)
			failures = append(failures, s.err)
			c.recorder.MemberSettled(s.member.DisplayName, string(KindOf(s.err)), s.elapsed)
			continue
		}
		predictions = append(predictions, s.prediction)
		c.recorder.MemberSettled(s.member.DisplayName, memberSucceeded, s.elapsed)
		logger.InfoContext(ctx, "council member settled",
			slog.String("member", s.member.DisplayName),
			slog.Int64("duration_ms", s.prediction.DurationMs),
			slog.Int("searches", len(s.prediction.SearchQueries)),
		)
	}

	if len(predictions) == 0 {
		elapsed := c.now().Sub(start)
		c.recorder.CouncilSettled(OutcomeFailed, 0, len(failedNames), elapsed)
		logger.ErrorContext(ctx, "council failed", slog.Int("failed", len(failedNames)))
		return domain.CouncilPrediction{}, fmt.Errorf("%w: %w", domain.ErrCouncilFailed, errors.Join(failures...))
	}

	aggregated := Aggregate(predictions)
	finished := c.now()
	elapsed := finished.Sub(start)

	outcome := OutcomeOK
	if len(failedNames) > 0 {
		outcome = OutcomePartial
	}
	c.recorder.CouncilSettled(outcome, len(predictions), len(failedNames), elapsed)

	if failedNames == nil {
		failedNames = []string{}
	}
	result := domain.CouncilPrediction{
		ID:                    c.newID(),
		MarketID:              market.ID,
		Timestamp:             finished,
		MemberPredictions:     predictions,
		AggregatedPredictions: aggregated,
		Metadata: domain.CouncilMetadata{
			CouncilSize:       len(enabled),
			SuccessfulMembers: len(predictions),
			FailedMembers:     failedNames,
			AggregationMethod: domain.AggregationMethodMean,
			TotalDurationMs:   elapsed.Milliseconds(),
		},
	}

	logger.InfoContext(ctx, "council complete",
		slog.String("prediction_id", result.ID),
		slog.Int("succeeded", len(predictions)),
		slog.Int("failed", len(failedNames)),
		slog.Int64("duration_ms", result.Metadata.TotalDurationMs),
	)
	return result, nil
}

// runMember isolates one member, converting panics into failures.
func (c *Coordinator) runMember(ctx context.Context, member domain.AgentIdentity, market domain.Market) (s settlement) {
	started := c.now()
	s.member = member
	defer func() {
		if r := recover(); r != nil {
			s.err = &AgentError{Member: member.DisplayName, Kind: FailureInternal, Err: fmt.Errorf("panic: %v", r)}
		}
		s.elapsed = c.now().Sub(started)
	}()

	s.prediction, s.err = c.runner.Run(ctx, member, market)
	return s
}
