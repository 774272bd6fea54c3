package agent

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/feldsher/feldsher/internal/metrics"
	"github.com/feldsher/feldsher/internal/provider"
)

// DecodeInvocations prepares the structured invocation list of a reply:
// raw argument payloads are decoded to maps, undecodable payloads degrade to
// empty arguments, and missing ids are filled in.
func DecodeInvocations(calls []provider.ToolCall) []provider.ToolCall {
	out := make([]provider.ToolCall, 0, len(calls))
	for _, tc := range calls {
		if tc.ID == "" {
			tc.ID = uuid.NewString()
		}
		if tc.Args == nil {
			tc.Args = decodeArgs(tc.RawArgs)
			if tc.Args == nil {
				slog.Warn("tool call arguments undecodable, degrading to empty",
					slog.String("tool", tc.Name))
				tc.Args = map[string]any{}
			}
		}
		out = append(out, tc)
	}
	return out
}

func decodeArgs(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil
	}
	return args
}

var codeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\n?(.*?)```")

// Recover extracts leaked tool calls from free text. Only names registered
// for the caller's role are matched, so prose that happens to contain
// parentheses cannot produce an invocation. Both `name({...})` and
// `<name>{...}</name>` forms are recognized, code fences stripped first.
func Recover(text string, visibleNames []string) []provider.ToolCall {
	if len(visibleNames) == 0 || text == "" {
		return nil
	}
	text = codeFence.ReplaceAllString(text, "$1")

	quoted := make([]string, len(visibleNames))
	for i, n := range visibleNames {
		quoted[i] = regexp.QuoteMeta(n)
	}
	alt := strings.Join(quoted, "|")
	// Paren form: name(args). Tag form: <name>args</name>.
	re := regexp.MustCompile(`(?s)\b(` + alt + `)\s*\(([^()]*)\)|<(` + alt + `)>\s*(.*?)\s*</`)

	var calls []provider.ToolCall
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		name, argsText := m[1], m[2]
		if name == "" {
			name, argsText = m[3], m[4]
		}
		args := parseLeakedArgs(argsText)
		calls = append(calls, provider.ToolCall{
			ID:        uuid.NewString(),
			Name:      name,
			Args:      args,
			Recovered: true,
		})
		metrics.RecoveredInvocations.Inc()
		slog.Info("recovered leaked tool call from reply text",
			slog.String("tool", name), slog.Int("args", len(args)))
	}
	return calls
}

// parseLeakedArgs decodes the argument block of a leaked call: JSON first,
// then key=value pairs, then empty arguments.
func parseLeakedArgs(s string) map[string]any {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}
	}
	if args := decodeArgs(s); args != nil {
		return args
	}

	args := make(map[string]any)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			k, v, ok = strings.Cut(pair, ":")
		}
		if !ok {
			continue
		}
		key := strings.Trim(strings.TrimSpace(k), `"'`)
		val := strings.Trim(strings.TrimSpace(v), `"'`)
		if key == "" {
			continue
		}
		args[key] = leakedValue(val)
	}
	return args
}

func leakedValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
