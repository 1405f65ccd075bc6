package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseKind tags the outcome of ExtractJSON.
type ParseKind int

const (
	Parsed ParseKind = iota + 1
	Malformed
)

func (k ParseKind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ParseResult is either a Parsed JSON object or a Malformed outcome with the
// reason the text could not be used.
type ParseResult struct {
	Kind   ParseKind
	JSON   json.RawMessage
	Reason string
}

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*[ \\t]*\\r?\\n?(.*?)```")

// ExtractJSON pulls a JSON object out of free model text. A fenced code block
// wins over bare text; otherwise the first balanced {...} span is used.
func ExtractJSON(text string) ParseResult {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		block := strings.TrimSpace(m[1])
		if strings.HasPrefix(block, "{") && json.Valid([]byte(block)) {
			return ParseResult{Kind: Parsed, JSON: json.RawMessage(block)}
		}
		if span, ok := firstObject(block); ok && json.Valid([]byte(span)) {
			return ParseResult{Kind: Parsed, JSON: json.RawMessage(span)}
		}
	}

	span, ok := firstObject(text)
	if !ok {
		return ParseResult{Kind: Malformed, Reason: "no JSON object found in output"}
	}
	if !json.Valid([]byte(span)) {
		return ParseResult{Kind: Malformed, Reason: "output contains an invalid JSON object"}
	}
	return ParseResult{Kind: Parsed, JSON: json.RawMessage(span)}
}

// firstObject returns the first balanced {...} span of s. Braces inside JSON
// strings are ignored.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
