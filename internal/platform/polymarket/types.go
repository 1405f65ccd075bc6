package polymarket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/alanyoungcy/oracles/internal/domain"
)

// Source tags markets imported from Polymarket.
const Source = "polymarket"

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// APIEvent is an event as returned by the Gamma API. An event groups one or
// more binary markets that share a question; each open child market becomes
// one option of the imported market.
type APIEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Active      flexBool    `json:"active"`
	Closed      bool        `json:"closed"`
	EndDate     string      `json:"endDate"`
	Markets     []APIMarket `json:"markets"`
}

// APIMarket is one binary market inside an event.
type APIMarket struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	Slug           string   `json:"slug"`
	GroupItemTitle string   `json:"groupItemTitle"`
	Outcomes       string   `json:"outcomes"` // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	Active         flexBool `json:"active"`
	Closed         bool     `json:"closed"`
}

// ToDomainMarket converts an event to a council market. A single-market event
// takes its options from the market's outcomes; a grouped event takes one
// option per open child market.
func (e *APIEvent) ToDomainMarket() (domain.Market, error) {
	key := e.Slug
	if key == "" {
		key = e.ID
	}
	m := domain.Market{
		ID:          Source + "-" + key,
		Title:       strings.TrimSpace(e.Title),
		Description: e.Description,
		Category:    e.Category,
		Source:      Source,
		Status:      e.status(),
	}
	if t, err := time.Parse(time.RFC3339, e.EndDate); err == nil {
		t = t.UTC()
		m.ResolutionDate = &t
	}

	var names []string
	switch len(e.Markets) {
	case 0:
	case 1:
		if err := json.Unmarshal([]byte(e.Markets[0].Outcomes), &names); err != nil {
			return domain.Market{}, fmt.Errorf("polymarket: event %s: decode outcomes: %w", e.ID, err)
		}
	default:
		for _, cm := range e.Markets {
			if cm.Closed {
				continue
			}
			name := cm.GroupItemTitle
			if name == "" {
				name = cm.Question
			}
			names = append(names, name)
		}
	}

	seen := make(map[string]int, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		id := optionID(name)
		if id == "" {
			continue
		}
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		m.Options = append(m.Options, domain.MarketOption{ID: id, Name: name})
	}
	return m, nil
}

func (e *APIEvent) status() domain.MarketStatus {
	switch {
	case e.Closed:
		return domain.MarketStatusResolved
	case bool(e.Active):
		return domain.MarketStatusActive
	default:
		return domain.MarketStatusPaused
	}
}

// optionID lowercases name and joins its letter and digit runs with '-'.
func optionID(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
