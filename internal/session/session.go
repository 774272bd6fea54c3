// Package session owns per-conversation turn logs and their lifecycle:
// creation, append, snapshot, role switch, and restoration from the persisted
// history store.
package session

import (
	"github.com/feldsher/feldsher/internal/provider"
	"github.com/feldsher/feldsher/internal/toolreg"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerSystem    Speaker = "system"
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerTool      Speaker = "tool"
)

// Turn is one atomic entry in a conversation log. Turns are immutable once
// appended; their order defines the provider's context window.
type Turn struct {
	Speaker            Speaker
	Text               string
	Invocations        []provider.ToolCall // assistant turns that requested tools
	SourceInvocationID string              // tool turns: the invocation answered
}

// Session is the ordered turn log for one conversation, bound to a role and
// an opaque caller context string.
type Session struct {
	ID            string
	Role          toolreg.Role
	CallerContext string

	turns []Turn
}

// New creates an empty session.
func New(id string, role toolreg.Role, callerContext string) *Session {
	return &Session{ID: id, Role: role, CallerContext: callerContext}
}

// Append adds turns to the log. Order is append-only and monotonic.
func (s *Session) Append(turns ...Turn) {
	s.turns = append(s.turns, turns...)
}

// Snapshot returns a copy of the turn log.
func (s *Session) Snapshot() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns in the log.
func (s *Session) Len() int { return len(s.turns) }

// Empty reports whether no turns have been appended yet.
func (s *Session) Empty() bool { return len(s.turns) == 0 }

// Messages renders the turn log as provider messages.
func (s *Session) Messages() []provider.Message {
	out := make([]provider.Message, 0, len(s.turns))
	for _, t := range s.turns {
		out = append(out, provider.Message{
			Role:       string(t.Speaker),
			Content:    t.Text,
			ToolCalls:  t.Invocations,
			ToolCallID: t.SourceInvocationID,
		})
	}
	return out
}
