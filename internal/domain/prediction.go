package domain

import "time"

// AggregationMethodMean is the only aggregation method the council uses: an
// unweighted per-option mean across members, renormalized.
const AggregationMethodMean = "mean"

// AgentPrediction is the validated output of one council member for one market.
type AgentPrediction struct {
	AgentModelID     string             `json:"agentModelId"`
	AgentDisplayName string             `json:"agentDisplayName"`
	Predictions      map[string]float64 `json:"predictions"`
	Reasoning        string             `json:"reasoning"`
	Sources          []string           `json:"sources"`
	SearchQueries    []string           `json:"searchQueries"`
	Confidence       float64            `json:"confidence"`
	Timestamp        time.Time          `json:"timestamp"`
	DurationMs       int64              `json:"durationMs"`
}

// CouncilMetadata records how a council run went.
type CouncilMetadata struct {
	CouncilSize       int      `json:"councilSize"`
	SuccessfulMembers int      `json:"successfulMembers"`
	FailedMembers     []string `json:"failedMembers"`
	AggregationMethod string   `json:"aggregationMethod"`
	TotalDurationMs   int64    `json:"totalDurationMs"`
}

// CouncilPrediction is the aggregated forecast produced by one council run.
type CouncilPrediction struct {
	ID                    string             `json:"id"`
	MarketID              string             `json:"marketId"`
	Timestamp             time.Time          `json:"timestamp"`
	MemberPredictions     []AgentPrediction  `json:"memberPredictions"`
	AggregatedPredictions map[string]float64 `json:"aggregatedPredictions"`
	Metadata              CouncilMetadata    `json:"metadata"`
}

// Partial reports whether at least one member failed during the run.
func (p CouncilPrediction) Partial() bool {
	return len(p.Metadata.FailedMembers) > 0
}

// Bus names carrying completed council predictions as JSON.
const (
	ChannelPredictions = "ch:prediction"
	StreamPredictions  = "council:predictions"
)
