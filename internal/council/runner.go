package council

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/llm"
	"github.com/alanyoungcy/oracles/internal/search"
)

const (
	DefaultResearchTimeout   = 120 * time.Second
	DefaultPredictTimeout    = 30 * time.Second
	DefaultMaxResearchSteps  = 5
	DefaultResearchMaxTokens = 4096
	DefaultPredictMaxTokens  = 1024

	webSearchToolName  = "webSearch"
	rawResultsDivider  = "\n\n---\nRaw search results:\n"
	researchStepJoiner = "\n\n"
)

// ClientSource resolves a provider key to a model client.
type ClientSource interface {
	Client(providerKey string) (llm.Client, error)
}

// RunnerConfig bounds one agent's protocol.
type RunnerConfig struct {
	ResearchTimeout   time.Duration
	PredictTimeout    time.Duration
	MaxResearchSteps  int
	ResearchMaxTokens int
	PredictMaxTokens  int
}

// DefaultRunnerConfig returns the standard research/predict bounds.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ResearchTimeout:   DefaultResearchTimeout,
		PredictTimeout:    DefaultPredictTimeout,
		MaxResearchSteps:  DefaultMaxResearchSteps,
		ResearchMaxTokens: DefaultResearchMaxTokens,
		PredictMaxTokens:  DefaultPredictMaxTokens,
	}
}

// Runner executes the two-phase research/predict protocol for one member.
type Runner struct {
	clients  ClientSource
	searcher search.Searcher
	cfg      RunnerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a Runner. Zero fields in cfg take their defaults.
func NewRunner(clients ClientSource, searcher search.Searcher, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.ResearchTimeout <= 0 {
		cfg.ResearchTimeout = def.ResearchTimeout
	}
	if cfg.PredictTimeout <= 0 {
		cfg.PredictTimeout = def.PredictTimeout
	}
	if cfg.MaxResearchSteps <= 0 {
		cfg.MaxResearchSteps = def.MaxResearchSteps
	}
	if cfg.ResearchMaxTokens <= 0 {
		cfg.ResearchMaxTokens = def.ResearchMaxTokens
	}
	if cfg.PredictMaxTokens <= 0 {
		cfg.PredictMaxTokens = def.PredictMaxTokens
	}
	return &Runner{clients: clients, searcher: searcher, cfg: cfg, logger: logger, now: time.Now}
}

type phase int

const (
	phaseResearching phase = iota
	phasePredicting
	phaseDone
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseResearching:
		return "researching"
	case phasePredicting:
		return "predicting"
	case phaseDone:
		return "done"
	default:
		return "failed"
	}
}

// session is one member's private run state.
type session struct {
	member   domain.AgentIdentity
	market   domain.Market
	client   llm.Client
	started  time.Time
	phase    phase
	queries  []string
	research string
	result   domain.AgentPrediction
	logger   *slog.Logger
}

// Run produces one member's forecast for market. Every failure is returned
// as an *AgentError.
func (r *Runner) Run(ctx context.Context, member domain.AgentIdentity, market domain.Market) (domain.AgentPrediction, error) {
	s := &session{
		member:  member,
		market:  market,
		started: r.now(),
		phase:   phaseResearching,
		queries: []string{},
		logger: r.logger.With(
			slog.String("member", member.DisplayName),
			slog.String("model", member.ModelID),
			slog.String("market_id", market.ID),
		),
	}

	client, err := r.clients.Client(member.ProviderKey)
	if err != nil {
		return domain.AgentPrediction{}, &AgentError{Member: member.DisplayName, Kind: FailureResearchFailed, Err: err}
	}
	s.client = client

	for s.phase != phaseDone {
		var err error
		next := phaseDone
		switch s.phase {
		case phaseResearching:
			err = r.research(ctx, s)
			next = phasePredicting
		case phasePredicting:
			err = r.predict(ctx, s)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "council member failed",
				slog.String("phase", s.phase.String()),
				slog.String("kind", string(KindOf(err))),
				slog.String("error", err.Error()),
			)
			s.phase = phaseFailed
			return domain.AgentPrediction{}, err
		}
		s.logger.DebugContext(ctx, "council member phase complete", slog.String("phase", s.phase.String()))
		s.phase = next
	}
	return s.result, nil
}

func (r *Runner) research(ctx context.Context, s *session) error {
	rctx, cancel := context.WithTimeout(ctx, r.cfg.ResearchTimeout)
	defer cancel()

	tool := llm.Tool{
		Name:        webSearchToolName,
		Description: webSearchDescription,
		Parameters:  webSearchParameters,
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode search arguments: %w", err)
			}
			s.queries = append(s.queries, in.Query)
			s.logger.DebugContext(ctx, "web search", slog.String("query", in.Query))
			return r.searcher.Search(ctx, in.Query)
		},
	}

	res, err := llm.GenerateText(rctx, s.client, llm.TextRequest{
		Model:     s.member.ModelID,
		System:    SystemPrompt,
		Prompt:    BuildResearchPrompt(s.market),
		Tools:     []llm.Tool{tool},
		MaxSteps:  r.cfg.MaxResearchSteps,
		MaxTokens: r.cfg.ResearchMaxTokens,
	})
	if err != nil {
		kind := FailureResearchFailed
		if timedOut(ctx, rctx) {
			kind = FailureResearchTimeout
		}
		return &AgentError{Member: s.member.DisplayName, Kind: kind, Err: err}
	}

	s.research = researchText(res)
	return nil
}

func (r *Runner) predict(ctx context.Context, s *session) error {
	pctx, cancel := context.WithTimeout(ctx, r.cfg.PredictTimeout)
	defer cancel()

	raw, err := llm.GenerateObject(pctx, s.client, llm.ObjectRequest{
		Model:     s.member.ModelID,
		System:    predictSystemPrompt,
		Prompt:    BuildPredictPrompt(s.market.OptionIDs(), s.research),
		Output:    predictionOutput,
		MaxTokens: r.cfg.PredictMaxTokens,
		Validate:  validatePrediction,
	})
	if err != nil {
		kind := FailurePredictFailed
		switch {
		case timedOut(ctx, pctx):
			kind = FailurePredictTimeout
		case errors.Is(err, llm.ErrMissingOutput):
			kind = FailureMissingOutput
		case errors.Is(err, llm.ErrMalformedOutput):
			kind = FailureMalformedOutput
		}
		return &AgentError{Member: s.member.DisplayName, Kind: kind, Err: err}
	}

	out, err := decodePrediction(raw)
	if err != nil {
		return &AgentError{Member: s.member.DisplayName, Kind: FailureMalformedOutput, Err: err}
	}

	valid := s.market.OptionSet()
	probs := make(map[string]float64, len(out.Entries))
	for _, e := range out.Entries {
		if _, ok := valid[e.OptionID]; !ok {
			s.logger.WarnContext(ctx, "ignoring unknown option id", slog.String("option_id", e.OptionID))
			continue
		}
		probs[e.OptionID] = e.Probability
	}
	if len(probs) == 0 {
		return &AgentError{
			Member: s.member.DisplayName,
			Kind:   FailureNoValidOptions,
			Err:    fmt.Errorf("%w (expected one of %s)", ErrNoValidOptions, strings.Join(s.market.OptionIDs(), ", ")),
		}
	}

	finished := r.now()
	s.result = domain.AgentPrediction{
		AgentModelID:     s.member.ModelID,
		AgentDisplayName: s.member.DisplayName,
		Predictions:      Normalize(probs),
		Reasoning:        out.Reasoning,
		Sources:          out.Sources,
		SearchQueries:    s.queries,
		Confidence:       out.Confidence,
		Timestamp:        finished,
		DurationMs:       finished.Sub(s.started).Milliseconds(),
	}
	return nil
}

// researchText joins every step's text, then the raw JSON of every tool
// result after a divider.
func researchText(res llm.TextResult) string {
	var texts, results []string
	for _, step := range res.Steps {
		if step.Text != "" {
			texts = append(texts, step.Text)
		}
		for _, tr := range step.ToolResults {
			b, err := json.Marshal(tr.Output)
			if err != nil {
				continue
			}
			results = append(results, string(b))
		}
	}

	text := strings.Join(texts, researchStepJoiner)
	if len(results) == 0 {
		return text
	}
	return text + rawResultsDivider + strings.Join(results, researchStepJoiner)
}

// timedOut reports whether the phase deadline, not the caller, ended phaseCtx.
func timedOut(parent, phaseCtx context.Context) bool {
	return errors.Is(phaseCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}
