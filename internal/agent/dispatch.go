package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/feldsher/feldsher/internal/metrics"
	"github.com/feldsher/feldsher/internal/provider"
	"github.com/feldsher/feldsher/internal/toolreg"
)

// ToolResult is the dispatcher's answer to one invocation. Every invocation
// gets exactly one result, failures included.
type ToolResult struct {
	InvocationID string         `json:"-"`
	OK           bool           `json:"ok"`
	Payload      map[string]any `json:"payload,omitempty"`
	ErrorMessage string         `json:"error,omitempty"`
}

// Text renders the result as the tool turn body sent back to the provider.
func (r ToolResult) Text() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"error":"result serialization failed"}`
	}
	return string(b)
}

// Dispatcher executes tool invocations against the registry with role
// enforcement and argument coercion.
type Dispatcher struct {
	reg *toolreg.Registry
}

// NewDispatcher creates a dispatcher over the registry.
func NewDispatcher(reg *toolreg.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// ExecuteAll runs the invocations of one reply concurrently and returns the
// results in invocation-emission order, not completion order.
func (d *Dispatcher) ExecuteAll(ctx context.Context, role toolreg.Role, invocations []provider.ToolCall) []ToolResult {
	results := make([]ToolResult, len(invocations))
	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv provider.ToolCall) {
			defer wg.Done()
			results[i] = d.Execute(ctx, role, inv)
		}(i, inv)
	}
	wg.Wait()
	return results
}

// Execute runs one invocation. Unknown names and out-of-scope tools come
// back as structured failures so the provider can self-correct.
func (d *Dispatcher) Execute(ctx context.Context, role toolreg.Role, inv provider.ToolCall) ToolResult {
	def, ok := d.reg.Get(inv.Name)
	if !ok {
		metrics.ToolExecutions.WithLabelValues(inv.Name, "not_found").Inc()
		return ToolResult{
			InvocationID: inv.ID,
			ErrorMessage: fmt.Sprintf("unknown tool %q", inv.Name),
		}
	}
	if !def.VisibleTo(role) {
		metrics.ToolExecutions.WithLabelValues(inv.Name, "denied").Inc()
		slog.Warn("tool call denied for role",
			slog.String("tool", inv.Name), slog.String("role", string(role)))
		return ToolResult{
			InvocationID: inv.ID,
			ErrorMessage: fmt.Sprintf("tool %q is not available for role %s", inv.Name, role),
		}
	}

	args := coerceArgs(def, inv.Args)
	if inv.Recovered {
		slog.Info("dispatching recovered invocation", slog.String("tool", inv.Name))
	}

	payload, err := def.Handler(ctx, args)
	if err != nil {
		metrics.ToolExecutions.WithLabelValues(inv.Name, "error").Inc()
		slog.Warn("tool execution failed",
			slog.String("tool", inv.Name), slog.Any("error", err))
		return ToolResult{InvocationID: inv.ID, ErrorMessage: err.Error()}
	}
	metrics.ToolExecutions.WithLabelValues(inv.Name, "ok").Inc()
	return ToolResult{InvocationID: inv.ID, OK: true, Payload: payload}
}

// coerceArgs aligns argument values with the declared parameter types.
// Coercion is best effort; values that do not fit pass through for the
// handler's own validation to reject.
func coerceArgs(def *toolreg.Definition, args map[string]any) map[string]any {
	if len(args) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		p := def.Param(k)
		if p == nil {
			out[k] = v
			continue
		}
		out[k] = coerceValue(p.Type, v)
	}
	return out
}

func coerceValue(typ string, v any) any {
	switch typ {
	case "integer":
		switch t := v.(type) {
		case float64:
			return int64(t)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				return n
			}
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return n
			}
		}
	case "number":
		switch t := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f
			}
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f
			}
		}
	case "boolean":
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	case "string":
		switch t := v.(type) {
		case float64:
			if t == float64(int64(t)) {
				return strconv.FormatInt(int64(t), 10)
			}
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		}
	}
	return v
}
