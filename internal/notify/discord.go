package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Embed colours per council outcome.
const (
	discordColorCompleted = 0x2ecc71
	discordColorPartial   = 0xf1c40f
	discordColorFailed    = 0xe74c3c
)

// Discord embed limits.
const (
	discordTitleLimit       = 256
	discordDescriptionLimit = 4096
	discordFieldLimit       = 1024
)

// barWidth is the number of cells in an option's probability bar.
const barWidth = 20

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// DiscordSender posts council alerts to a Discord webhook as embeds.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for webhookURL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: senderTimeout},
	}
}

// Send posts a as a single embed: one field per listed option with its
// share and bar, a field naming failed members, and the member tally in the
// footer.
func (d *DiscordSender) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{discordEmbedFor(a)}})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns "discord".
func (d *DiscordSender) Name() string {
	return "discord"
}

func discordEmbedFor(a Alert) discordEmbed {
	e := discordEmbed{
		Title: truncate(a.Headline(), discordTitleLimit),
		Color: discordColorCompleted,
	}
	if !a.At.IsZero() {
		e.Timestamp = a.At.UTC().Format(time.RFC3339)
	}

	switch a.Event {
	case EventCouncilFailed:
		e.Color = discordColorFailed
		e.Description = truncate(a.Reason, discordDescriptionLimit)
		e.Footer = &discordFooter{Text: "market " + a.MarketID}
		return e
	case EventCouncilPartial:
		e.Color = discordColorPartial
	}

	for _, o := range a.Options {
		e.Fields = append(e.Fields, discordField{
			Name:  truncate(o.Name, discordTitleLimit),
			Value: fmt.Sprintf("`%s` %.1f%%", bar(o.Probability), o.Probability*100),
		})
	}
	if len(a.Failed) > 0 {
		e.Fields = append(e.Fields, discordField{
			Name:  "Failed members",
			Value: truncate(strings.Join(a.Failed, ", "), discordFieldLimit),
		})
	}
	e.Footer = &discordFooter{Text: fmt.Sprintf("%d/%d members succeeded · market %s", a.Succeeded, a.CouncilSize, a.MarketID)}
	return e
}

func bar(p float64) string {
	filled := int(p*barWidth + 0.5)
	filled = max(0, min(filled, barWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
