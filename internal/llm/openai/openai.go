// Package openai implements llm.Client for the OpenAI Chat Completions API
// and for compatible endpoints such as xAI.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/oracles/internal/llm"
)

// DefaultBaseURL is the OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config configures a Client.
type Config struct {
	// Name labels errors and logs, e.g. "openai" or "xai".
	Name    string
	APIKey  string
	BaseURL string
	// StructuredOutput enables json_schema response formats.
	StructuredOutput bool
	HTTPClient       *http.Client
}

// Client talks to a chat-completions endpoint.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	structured bool
	httpClient *http.Client
}

var _ llm.Client = (*Client)(nil)

// New creates a chat-completions client.
func New(cfg Config) *Client {
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		name:       name,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		structured: cfg.StructuredOutput,
		httpClient: hc,
	}
}

// Capabilities reports native structured output support.
func (c *Client) Capabilities() llm.Capabilities {
	return llm.Capabilities{StructuredOutput: c.structured}
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
		Parameters  llm.Schema `json:"parameters"`
	} `json:"function"`
}

type responseFormat struct {
	Type       string `json:"type"`
	JSONSchema struct {
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
		Schema      llm.Schema `json:"schema"`
		Strict      bool       `json:"strict"`
	} `json:"json_schema"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Tools          []chatTool      `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete performs one chat-completions round-trip.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	body := chatRequest{
		Model:     req.Model,
		Messages:  toChatMessages(req.System, req.Messages),
		MaxTokens: req.MaxTokens,
	}
	for _, t := range req.Tools {
		var ct chatTool
		ct.Type = "function"
		ct.Function.Name = t.Name
		ct.Function.Description = t.Description
		ct.Function.Parameters = t.Parameters
		body.Tools = append(body.Tools, ct)
	}
	if req.Output != nil && c.structured {
		rf := &responseFormat{Type: "json_schema"}
		rf.JSONSchema.Name = req.Output.Name
		rf.JSONSchema.Description = req.Output.Description
		rf.JSONSchema.Schema = req.Output.Schema
		rf.JSONSchema.Strict = true
		body.ResponseFormat = rf
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("%s: encode request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("%s: send request: %w", c.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("%s: read response: %w", c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return llm.Completion{}, &llm.StatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return llm.Completion{}, fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	if len(cr.Choices) == 0 {
		return llm.Completion{}, fmt.Errorf("%s: response has no choices", c.name)
	}

	choice := cr.Choices[0]
	out := llm.Completion{FinishReason: choice.FinishReason}
	if choice.Message.Content != nil {
		out.Text = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		args := tc.Function.Arguments
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	return out, nil
}

func toChatMessages(system string, msgs []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, chatMessage{Role: "system", Content: strPtr(system)})
	}
	for _, m := range msgs {
		cm := chatMessage{Role: string(m.Role), ToolCallID: m.ToolCallID}
		if m.Content != "" || len(m.ToolCalls) == 0 {
			cm.Content = strPtr(m.Content)
		}
		for _, tc := range m.ToolCalls {
			var call chatToolCall
			call.ID = tc.ID
			call.Type = "function"
			call.Function.Name = tc.Name
			call.Function.Arguments = string(tc.Arguments)
			cm.ToolCalls = append(cm.ToolCalls, call)
		}
		out = append(out, cm)
	}
	return out
}

func strPtr(s string) *string { return &s }
