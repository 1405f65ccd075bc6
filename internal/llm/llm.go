// Package llm abstracts chat-model providers behind a single-turn Client and
// layers the multi-step tool loop and structured-output extraction on top.
package llm

import (
	"context"
	"encoding/json"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Schema is a JSON Schema document.
type Schema map[string]any

// ToolCall is a model's request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one entry of a conversation. Assistant messages may carry tool
// calls; tool messages carry the result of exactly one call.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// ToolSpec advertises a tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  Schema
}

// OutputSchema names and describes the object a model must emit.
type OutputSchema struct {
	Name        string
	Description string
	Schema      Schema
}

// CompletionRequest is a single round-trip to a provider.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []ToolSpec
	Output    *OutputSchema
	MaxTokens int
}

// Completion is a provider's answer to one CompletionRequest.
type Completion struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
}

// Capabilities describes what a provider supports natively.
type Capabilities struct {
	// StructuredOutput is true when the provider can constrain its output to a
	// JSON schema.
	StructuredOutput bool
}

// Client is one provider's model-invocation capability.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	Capabilities() Capabilities
}
