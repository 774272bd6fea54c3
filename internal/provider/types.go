// Package provider defines the uniform LLM backend interface, the concrete
// adapters, and the ordered fallback chain that drives them.
package provider

import (
	"context"
	"encoding/json"
)

// Message represents a chat message in the LLM conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is an LLM-requested tool invocation.
//
// Adapters fill ID, Name and RawArgs from the provider's structured calling
// channel; the extractor decodes RawArgs into Args. Invocations rescued from
// free text carry Recovered=true so the dispatcher can log provenance.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	RawArgs   string         `json:"arguments,omitempty"` // raw JSON string from the wire
	Args      map[string]any `json:"-"`
	Recovered bool           `json:"-"`
}

// Response is the LLM's reply to a chat request.
type Response struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"`
}

// ToolDefinition is an OpenAI-compatible function tool schema.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function for the LLM.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// WireArgs returns the raw JSON argument string for the call, marshaling the
// decoded Args map when the wire form is absent (recovered invocations).
func (tc ToolCall) WireArgs() string {
	if tc.RawArgs != "" {
		return tc.RawArgs
	}
	if len(tc.Args) > 0 {
		if b, err := json.Marshal(tc.Args); err == nil {
			return string(b)
		}
	}
	return "{}"
}

// Provider is the interface for LLM backends. Chat must honor ctx cancellation.
type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)
}
