package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool is an invocable function the model may call during GenerateText.
type Tool struct {
	Name        string
	Description string
	Parameters  Schema
	Execute     func(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolResult is the output of one tool call.
type ToolResult struct {
	CallID string
	Name   string
	Args   json.RawMessage
	Output any
}

// Step is one model round-trip of the tool loop.
type Step struct {
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// TextRequest configures GenerateText.
type TextRequest struct {
	Model     string
	System    string
	Prompt    string
	Tools     []Tool
	MaxSteps  int
	MaxTokens int
}

// TextResult holds the final text and every step taken to reach it.
type TextResult struct {
	Text  string
	Steps []Step
}

// GenerateText runs the model in a tool loop. Each step either ends the loop
// with plain text or issues tool calls whose results are fed back. The loop
// stops after MaxSteps steps; the last step's text may then be empty.
func GenerateText(ctx context.Context, c Client, req TextRequest) (TextResult, error) {
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 1
	}

	specs := make([]ToolSpec, 0, len(req.Tools))
	byName := make(map[string]Tool, len(req.Tools))
	for _, t := range req.Tools {
		specs = append(specs, ToolSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		byName[t.Name] = t
	}

	var result TextResult
	messages := []Message{{Role: RoleUser, Content: req.Prompt}}

	for step := 1; step <= maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		comp, err := c.Complete(ctx, CompletionRequest{
			Model:     req.Model,
			System:    req.System,
			Messages:  messages,
			Tools:     specs,
			MaxTokens: req.MaxTokens,
		})
		if err != nil {
			return result, fmt.Errorf("llm: step %d: %w", step, err)
		}

		current := Step{Text: comp.Text, ToolCalls: comp.ToolCalls}
		result.Text = comp.Text
		if len(comp.ToolCalls) == 0 {
			result.Steps = append(result.Steps, current)
			return result, nil
		}

		messages = append(messages, Message{Role: RoleAssistant, Content: comp.Text, ToolCalls: comp.ToolCalls})
		for _, call := range comp.ToolCalls {
			tool, ok := byName[call.Name]
			if !ok {
				result.Steps = append(result.Steps, current)
				return result, &ToolError{Tool: call.Name, Err: ErrUnknownTool}
			}
			out, err := tool.Execute(ctx, call.Arguments)
			if err != nil {
				result.Steps = append(result.Steps, current)
				return result, &ToolError{Tool: call.Name, Err: err}
			}
			payload, err := json.Marshal(out)
			if err != nil {
				result.Steps = append(result.Steps, current)
				return result, &ToolError{Tool: call.Name, Err: fmt.Errorf("encode result: %w", err)}
			}
			current.ToolResults = append(current.ToolResults, ToolResult{
				CallID: call.ID,
				Name:   call.Name,
				Args:   call.Arguments,
				Output: out,
			})
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
		result.Steps = append(result.Steps, current)
	}
	return result, nil
}

// ObjectRequest configures GenerateObject.
type ObjectRequest struct {
	Model     string
	System    string
	Prompt    string
	Output    OutputSchema
	MaxTokens int
	// Validate checks the decoded object against Output. A failure is
	// reported as ErrMalformedOutput. When nil only JSON syntax is checked.
	Validate func(json.RawMessage) error
}

// GenerateObject asks the model for a single JSON object. Providers with
// native structured output are constrained by the schema; all others are
// instructed in the system prompt and their text is run through ExtractJSON.
// Either way the object is passed through req.Validate before it is returned.
func GenerateObject(ctx context.Context, c Client, req ObjectRequest) (json.RawMessage, error) {
	native := c.Capabilities().StructuredOutput

	creq := CompletionRequest{
		Model:     req.Model,
		System:    req.System,
		Messages:  []Message{{Role: RoleUser, Content: req.Prompt}},
		MaxTokens: req.MaxTokens,
	}
	if native {
		out := req.Output
		creq.Output = &out
	} else {
		creq.System = withSchemaInstructions(req.System, req.Output)
	}

	comp, err := c.Complete(ctx, creq)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(comp.Text)
	if text == "" {
		return nil, ErrMissingOutput
	}
	var obj json.RawMessage
	if native && json.Valid([]byte(text)) {
		obj = json.RawMessage(text)
	} else {
		parsed := ExtractJSON(text)
		if parsed.Kind != Parsed {
			return nil, fmt.Errorf("%w: %s", ErrMalformedOutput, parsed.Reason)
		}
		obj = parsed.JSON
	}

	if req.Validate != nil {
		if err := req.Validate(obj); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
		}
	}
	return obj, nil
}

func withSchemaInstructions(system string, out OutputSchema) string {
	schema, _ := json.MarshalIndent(out.Schema, "", "  ")

	var b strings.Builder
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with a single JSON object")
	if out.Description != "" {
		b.WriteString(" (")
		b.WriteString(out.Description)
		b.WriteString(")")
	}
	b.WriteString(" that conforms to this JSON schema:\n\n")
	b.Write(schema)
	b.WriteString("\n\nReturn only the JSON object, without commentary.")
	return b.String()
}
