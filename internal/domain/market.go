package domain

import (
	"fmt"
	"strings"
	"time"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusPaused   MarketStatus = "paused"
)

// Valid reports whether s is one of the known market states.
func (s MarketStatus) Valid() bool {
	switch s {
	case MarketStatusActive, MarketStatusResolved, MarketStatusPaused:
		return true
	default:
		return false
	}
}

// MarketOption is one discrete outcome of a market.
type MarketOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Market is a prediction-market question with a fixed set of outcome options.
type Market struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Options        []MarketOption `json:"options"`
	ResolutionDate *time.Time     `json:"resolutionDate,omitempty"`
	Source         string         `json:"source,omitempty"`
	Status         MarketStatus   `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// OptionIDs returns the option ids in declaration order.
func (m Market) OptionIDs() []string {
	ids := make([]string, 0, len(m.Options))
	for _, o := range m.Options {
		ids = append(ids, o.ID)
	}
	return ids
}

// OptionSet returns the option ids as a lookup set.
func (m Market) OptionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m.Options))
	for _, o := range m.Options {
		set[o.ID] = struct{}{}
	}
	return set
}

// OptionName returns the display name of the option with the given id, or the
// id itself when the market has no such option.
func (m Market) OptionName(id string) string {
	for _, o := range m.Options {
		if o.ID == id {
			return o.Name
		}
	}
	return id
}

// Validate checks the structural invariants of a market: a non-empty id and
// title, at least one option, and option ids that are non-empty and unique.
func (m Market) Validate() error {
	var errs []string
	if strings.TrimSpace(m.ID) == "" {
		errs = append(errs, "id must not be empty")
	}
	if strings.TrimSpace(m.Title) == "" {
		errs = append(errs, "title must not be empty")
	}
	if len(m.Options) == 0 {
		errs = append(errs, "at least one option is required")
	}
	seen := make(map[string]bool, len(m.Options))
	for i, o := range m.Options {
		if strings.TrimSpace(o.ID) == "" {
			errs = append(errs, fmt.Sprintf("option %d: id must not be empty", i))
			continue
		}
		if seen[o.ID] {
			errs = append(errs, fmt.Sprintf("option %d: duplicate id %q", i, o.ID))
		}
		seen[o.ID] = true
	}
	if m.Status != "" && !m.Status.Valid() {
		errs = append(errs, fmt.Sprintf("unknown status %q", m.Status))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidMarket, m.ID, strings.Join(errs, "; "))
	}
	return nil
}
