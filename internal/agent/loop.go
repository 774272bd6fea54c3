// Package agent runs the tool-calling orchestrator loop: one provider
// conversation per user message, with role-scoped tool dispatch and
// provider fallback.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/feldsher/feldsher/internal/metrics"
	"github.com/feldsher/feldsher/internal/provider"
	"github.com/feldsher/feldsher/internal/session"
	"github.com/feldsher/feldsher/internal/toolreg"
)

// maxRounds caps provider calls per user message so a loop of tool calls
// cannot run unbounded.
const maxRounds = 10

// apologyReply is the fixed user-facing text for terminal failures.
const apologyReply = "I'm sorry, I'm having trouble processing your request right now. Please try again in a few minutes."

// ChainSender is the provider fallback chain surface the loop drives.
type ChainSender interface {
	Send(ctx context.Context, messages []provider.Message, tools []provider.ToolDefinition, start int) (*provider.Response, int, error)
	CandidateName(idx int) string
}

// Recorder persists finished user/assistant exchanges.
type Recorder interface {
	Append(ctx context.Context, sessionID, role, userText, assistantText string) error
}

// Agent wires the chain, the tool registry, and the session store into the
// message-processing loop.
type Agent struct {
	chain    ChainSender
	reg      *toolreg.Registry
	sessions *session.Store
	dispatch *Dispatcher
	recorder Recorder // nil disables persistence
}

// New creates the orchestrator.
func New(chain ChainSender, reg *toolreg.Registry, sessions *session.Store, recorder Recorder) *Agent {
	return &Agent{
		chain:    chain,
		reg:      reg,
		sessions: sessions,
		dispatch: NewDispatcher(reg),
		recorder: recorder,
	}
}

// ProcessMessage runs one full orchestrator loop for a user message and
// returns the final reply with its follow-up suggestions.
//
// The turn commits atomically: nothing is appended to the session log until
// the turn reaches a final reply, so cancellation or provider exhaustion
// never leaves a tool invocation without its result in the log.
func (a *Agent) ProcessMessage(ctx context.Context, sessionID string, role toolreg.Role, callerContext, userText string) (string, []string, error) {
	if !role.Valid() {
		return "", nil, fmt.Errorf("unknown role %q", role)
	}
	metrics.ChatTurns.WithLabelValues(string(role)).Inc()

	var reply string
	var suggestions []string
	err := a.sessions.WithSession(ctx, sessionID, role, callerContext, func(sess *session.Session) error {
		var err error
		reply, suggestions, err = a.runTurn(ctx, sess, userText)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	return reply, suggestions, nil
}

func (a *Agent) runTurn(ctx context.Context, sess *session.Session, userText string) (string, []string, error) {
	tools := a.reg.ToLLMTools(sess.Role)
	visibleNames := a.reg.VisibleNames(sess.Role)

	// pending buffers this turn's log entries until the turn is final.
	pending := []session.Turn{{Speaker: session.SpeakerUser, Text: userText}}
	messages := append(sess.Messages(), provider.Message{Role: "user", Content: userText})

	pinned := 0
	for round := 0; round < maxRounds; round++ {
		resp, idx, err := a.chain.Send(ctx, messages, tools, pinned)
		if err != nil {
			var exhausted *provider.ExhaustedError
			if errors.As(err, &exhausted) {
				slog.Error("all provider candidates exhausted",
					slog.String("session_id", sess.ID),
					slog.Int("attempts", exhausted.Attempts))
				return a.finalize(ctx, sess, pending, userText, apologyReply), nil, nil
			}
			// Caller cancellation or an internal fault: commit nothing.
			return "", nil, err
		}
		// A candidate that answered keeps the rest of this turn.
		pinned = idx

		invocations := DecodeInvocations(resp.ToolCalls)
		if len(invocations) == 0 {
			invocations = Recover(resp.Content, visibleNames)
		}
		if len(invocations) == 0 {
			clean, suggestions := ExtractSuggestions(resp.Content)
			return a.finalize(ctx, sess, pending, userText, clean), suggestions, nil
		}

		results := a.dispatch.ExecuteAll(ctx, sess.Role, invocations)
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}

		assistant := session.Turn{Speaker: session.SpeakerAssistant, Text: resp.Content, Invocations: invocations}
		pending = append(pending, assistant)
		messages = append(messages, provider.Message{Role: "assistant", Content: resp.Content, ToolCalls: invocations})
		for _, r := range results {
			turn := session.Turn{Speaker: session.SpeakerTool, Text: r.Text(), SourceInvocationID: r.InvocationID}
			pending = append(pending, turn)
			messages = append(messages, provider.Message{Role: "tool", Content: r.Text(), ToolCallID: r.InvocationID})
		}
	}

	slog.Warn("round cap reached without a final reply", slog.String("session_id", sess.ID))
	return a.finalize(ctx, sess, pending, userText, apologyReply), nil, nil
}

// finalize commits the buffered turns plus the final assistant reply, then
// persists the flattened exchange.
func (a *Agent) finalize(ctx context.Context, sess *session.Session, pending []session.Turn, userText, reply string) string {
	pending = append(pending, session.Turn{Speaker: session.SpeakerAssistant, Text: reply})
	sess.Append(pending...)

	if a.recorder != nil {
		if err := a.recorder.Append(ctx, sess.ID, string(sess.Role), userText, reply); err != nil {
			slog.Warn("persisting exchange failed",
				slog.String("session_id", sess.ID), slog.Any("error", err))
		}
	}
	return reply
}
