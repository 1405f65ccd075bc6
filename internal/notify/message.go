package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// maxListedOptions caps how many aggregated options an alert lists.
const maxListedOptions = 5

// OptionShare is one aggregated option of a council result.
type OptionShare struct {
	Name        string
	Probability float64
}

// Alert is a council outcome in a form every Sender can render.
type Alert struct {
	Event       string
	MarketID    string
	MarketTitle string
	// Options is sorted by probability, highest first. Empty for failures.
	Options     []OptionShare
	Succeeded   int
	CouncilSize int
	Failed      []string
	// Reason is set only for EventCouncilFailed.
	Reason string
	At     time.Time
}

// CouncilAlert classifies a finished prediction and collects what a sender
// shows for it.
func CouncilAlert(m domain.Market, p domain.CouncilPrediction) Alert {
	event := EventCouncilCompleted
	if p.Partial() {
		event = EventCouncilPartial
	}

	type row struct {
		id string
		p  float64
	}
	rows := make([]row, 0, len(p.AggregatedPredictions))
	for id, prob := range p.AggregatedPredictions {
		rows = append(rows, row{id, prob})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].p != rows[j].p {
			return rows[i].p > rows[j].p
		}
		return rows[i].id < rows[j].id
	})
	if len(rows) > maxListedOptions {
		rows = rows[:maxListedOptions]
	}
	options := make([]OptionShare, len(rows))
	for i, r := range rows {
		options[i] = OptionShare{Name: m.OptionName(r.id), Probability: r.p}
	}

	return Alert{
		Event:       event,
		MarketID:    m.ID,
		MarketTitle: m.Title,
		Options:     options,
		Succeeded:   p.Metadata.SuccessfulMembers,
		CouncilSize: p.Metadata.CouncilSize,
		Failed:      p.Metadata.FailedMembers,
		At:          p.Timestamp,
	}
}

// FailureAlert describes a run in which every member failed.
func FailureAlert(m domain.Market, err error) Alert {
	return Alert{
		Event:       EventCouncilFailed,
		MarketID:    m.ID,
		MarketTitle: m.Title,
		Reason:      err.Error(),
	}
}

// Headline is the one-line summary used as a message title.
func (a Alert) Headline() string {
	switch a.Event {
	case EventCouncilFailed:
		return "Council failed: " + a.MarketTitle
	case EventCouncilPartial:
		return "Council prediction (partial): " + a.MarketTitle
	default:
		return "Council prediction: " + a.MarketTitle
	}
}

// MembersLine summarises member outcomes, e.g. "Members: 2/3 succeeded
// (failed: Grok 3)".
func (a Alert) MembersLine() string {
	line := fmt.Sprintf("Members: %d/%d succeeded", a.Succeeded, a.CouncilSize)
	if len(a.Failed) > 0 {
		line += " (failed: " + strings.Join(a.Failed, ", ") + ")"
	}
	return line
}
