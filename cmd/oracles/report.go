package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/alanyoungcy/oracles/internal/domain"
)

const (
	ruleWidth   = 60
	sectionRule = 40
	barWidth    = 30
	nameWidth   = 20
	topOptions  = 3
)

type ranked struct {
	id string
	p  float64
}

// rank orders a distribution by probability, highest first. Ties fall back
// to option id so output is stable.
func rank(dist map[string]float64) []ranked {
	out := make([]ranked, 0, len(dist))
	for id, p := range dist {
		out = append(out, ranked{id: id, p: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].p != out[j].p {
			return out[i].p > out[j].p
		}
		return out[i].id < out[j].id
	})
	return out
}

func optionName(m domain.Market, id string) string {
	for _, o := range m.Options {
		if o.ID == id && o.Name != "" {
			return o.Name
		}
	}
	return id
}

// writeReport prints the aggregated distribution with bars, each member's
// summary and the members that failed.
func writeReport(w io.Writer, m domain.Market, p domain.CouncilPrediction) {
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))
	fmt.Fprintf(w, "Market: %s\n", m.Title)
	fmt.Fprintln(w, strings.Repeat("=", ruleWidth))

	fmt.Fprintf(w, "\n%s\nCOUNCIL PREDICTION\n%s\n", strings.Repeat("-", sectionRule), strings.Repeat("-", sectionRule))
	for _, r := range rank(p.AggregatedPredictions) {
		bar := strings.Repeat("█", int(math.Round(r.p*barWidth)))
		fmt.Fprintf(w, "%-*s %5.1f%% %s\n", nameWidth, optionName(m, r.id), r.p*100, bar)
	}

	fmt.Fprintf(w, "\n%s\nINDIVIDUAL PREDICTIONS\n%s\n", strings.Repeat("-", sectionRule), strings.Repeat("-", sectionRule))
	for _, mp := range p.MemberPredictions {
		fmt.Fprintf(w, "\n[%s]\n", mp.AgentDisplayName)
		fmt.Fprintf(w, "Confidence: %.0f%%\n", mp.Confidence*100)
		fmt.Fprintf(w, "Duration: %dms\n", mp.DurationMs)
		fmt.Fprintf(w, "Searches: %d\n", len(mp.SearchQueries))

		top := rank(mp.Predictions)
		if len(top) > topOptions {
			top = top[:topOptions]
		}
		for _, r := range top {
			fmt.Fprintf(w, "  %s: %.1f%%\n", optionName(m, r.id), r.p*100)
		}
	}

	if failed := p.Metadata.FailedMembers; len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed members: %s\n", strings.Join(failed, ", "))
	}
	fmt.Fprintln(w)
}
