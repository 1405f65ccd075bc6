package llm

import (
	"errors"
	"fmt"
)

var (
	ErrMissingOutput      = errors.New("llm: model returned no output")
	ErrMalformedOutput    = errors.New("llm: malformed structured output")
	ErrUnknownProvider    = errors.New("llm: unknown provider")
	ErrMissingCredentials = errors.New("llm: missing credentials")
	ErrUnknownTool        = errors.New("llm: unknown tool")
)

// ToolError reports a failed tool invocation inside the tool loop.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("llm: tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// StatusError is returned by provider clients for non-2xx HTTP responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}
