package council

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// SystemPrompt frames every research call.
const SystemPrompt = `You are an expert prediction market analyst for The Oracles, a platform where several AI models forecast real-world events.

Your job is to estimate the probability of each possible outcome of a market.

Principles:
- Research before you predict. Use the web search tool to find recent news, data and expert opinion.
- Be calibrated. A 70% forecast should come true about 70% of the time.
- Start from base rates and historical precedent, then adjust for current evidence.
- Weigh evidence by recency and source reliability, and say where you are uncertain.
- Assign a probability to every option; the probabilities must sum to 1.0.`

const predictSystemPrompt = "You are an expert prediction market analyst. Turn the research you are given into a structured prediction. Use the exact option IDs listed. Probabilities must sum to 1.0."

const webSearchDescription = "Search the web for current information about news, events, people, and data relevant to the prediction question. Use it to find recent developments, expert opinions, and factual information."

// BuildResearchPrompt renders the market for the research phase.
func BuildResearchPrompt(m domain.Market) string {
	var b strings.Builder

	b.WriteString("## Market\n")
	fmt.Fprintf(&b, "**Title:** %s\n", m.Title)
	if m.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", m.Description)
	}
	if m.Category != "" {
		fmt.Fprintf(&b, "**Category:** %s\n", m.Category)
	}
	if m.ResolutionDate != nil {
		fmt.Fprintf(&b, "**Resolution Date:** %s\n", m.ResolutionDate.UTC().Format("2006-01-02"))
	}
	if m.Source != "" {
		fmt.Fprintf(&b, "**Source:** %s\n", m.Source)
	}

	b.WriteString("\n## Options\n")
	for _, o := range m.Options {
		fmt.Fprintf(&b, "- %s: %s", o.ID, o.Name)
		if o.Description != "" {
			fmt.Fprintf(&b, " (%s)", o.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Instructions\n")
	b.WriteString("1. Search the web for the latest information relevant to this market.\n")
	b.WriteString("2. Identify the key factors that will decide the outcome.\n")
	b.WriteString("3. Estimate a probability for every option listed above.\n")
	b.WriteString("4. Explain your reasoning, cite your sources and state your overall confidence.\n")
	return b.String()
}

// BuildPredictPrompt asks for the structured forecast based on research.
func BuildPredictPrompt(optionIDs []string, research string) string {
	return fmt.Sprintf("Based on the following research, generate your prediction.\n\nThe option IDs are: %s\n\nResearch:\n%s",
		strings.Join(optionIDs, ", "), research)
}
