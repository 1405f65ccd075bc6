package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONPrefersFencedBlock(t *testing.T) {
	text := "Here is my answer {not this}\n```json\n{\"a\": 1}\n```\ntrailing {\"b\": 2}"
	got := ExtractJSON(text)
	if got.Kind != Parsed {
		t.Fatalf("expected parsed, got %s (%s)", got.Kind, got.Reason)
	}
	if string(got.JSON) != `{"a": 1}` {
		t.Fatalf("unexpected JSON %s", got.JSON)
	}
}

func TestExtractJSONFallsBackToBalancedSpan(t *testing.T) {
	text := `Sure. {"reasoning": "uses } inside a string", "nested": {"x": [1, 2]}} and more text`
	got := ExtractJSON(text)
	if got.Kind != Parsed {
		t.Fatalf("expected parsed, got %s (%s)", got.Kind, got.Reason)
	}
	var v map[string]any
	if err := json.Unmarshal(got.JSON, &v); err != nil {
		t.Fatalf("extracted JSON does not decode: %v", err)
	}
	if v["reasoning"] != "uses } inside a string" {
		t.Fatalf("unexpected reasoning %v", v["reasoning"])
	}
}

func TestExtractJSONInvalidFenceFallsThrough(t *testing.T) {
	text := "```\nnot json at all\n```\n{\"ok\": true}"
	got := ExtractJSON(text)
	if got.Kind != Parsed || string(got.JSON) != `{"ok": true}` {
		t.Fatalf("expected fallback to bare object, got %s %s", got.Kind, got.JSON)
	}
}

func TestExtractJSONMalformed(t *testing.T) {
	cases := map[string]string{
		"no object":  "I cannot answer that.",
		"unbalanced": `{"a": 1`,
		"invalid":    `{a: 1}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			got := ExtractJSON(text)
			if got.Kind != Malformed {
				t.Fatalf("expected malformed, got %s", got.Kind)
			}
			if got.Reason == "" {
				t.Fatalf("expected a reason")
			}
		})
	}
}
