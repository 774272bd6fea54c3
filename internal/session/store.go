package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/feldsher/feldsher/internal/metrics"
	"github.com/feldsher/feldsher/internal/toolreg"
)

// TurnPair is one flattened user/assistant exchange from the persisted log.
type TurnPair struct {
	UserText      string
	AssistantText string
}

// HistoryLoader fetches the persisted exchanges for a session id, oldest first.
type HistoryLoader func(ctx context.Context, sessionID string) ([]TurnPair, error)

// ComposeFn renders the role-specific system turn text for a new or restored
// session.
type ComposeFn func(role toolreg.Role, callerContext string) string

// Store keeps active sessions in memory, keyed by id. Access to one session is
// serialized by a per-key mutex so two in-flight loops can never interleave
// appends to the same turn log.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	loadHistory HistoryLoader // nil disables restoration
	compose     ComposeFn
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates a session store. loadHistory may be nil.
func NewStore(loadHistory HistoryLoader, compose ComposeFn) *Store {
	return &Store{
		entries:     make(map[string]*entry),
		loadHistory: loadHistory,
		compose:     compose,
	}
}

// WithSession runs fn with exclusive access to the session for id, creating,
// restoring, or resetting it first as needed.
//
// A session absent from the store is restored from the persisted log when one
// exists; an unreadable persisted log starts a fresh session rather than fail
// the request. A role switch discards the active log and seeds a fresh one
// with the new role's system turn.
func (st *Store) WithSession(ctx context.Context, id string, role toolreg.Role, callerContext string, fn func(*Session) error) error {
	e := st.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		e.sess = st.build(ctx, id, role, callerContext)
	} else if e.sess.Role != role {
		slog.Info("role switched, resetting session log",
			slog.String("session_id", id),
			slog.String("from", string(e.sess.Role)),
			slog.String("to", string(role)))
		e.sess = st.fresh(id, role, callerContext)
	}

	return fn(e.sess)
}

// Evict removes a session from the active store. The persisted log is untouched.
func (st *Store) Evict(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.entries[id]; ok {
		delete(st.entries, id)
		metrics.ActiveSessions.Dec()
	}
}

// Len returns the number of resident sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// entry returns the lock entry for id, creating it if absent.
func (st *Store) entry(id string) *entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.entries[id]
	if !ok {
		e = &entry{}
		st.entries[id] = e
		metrics.ActiveSessions.Inc()
	}
	return e
}

// build creates the session for id, restoring from the persisted log when
// possible.
func (st *Store) build(ctx context.Context, id string, role toolreg.Role, callerContext string) *Session {
	if st.loadHistory == nil {
		return st.fresh(id, role, callerContext)
	}

	pairs, err := st.loadHistory(ctx, id)
	if err != nil {
		slog.Warn("persisted log unreadable, starting fresh session",
			slog.String("session_id", id),
			slog.Any("error", err))
		return st.fresh(id, role, callerContext)
	}
	if len(pairs) == 0 {
		return st.fresh(id, role, callerContext)
	}

	sess := st.fresh(id, role, callerContext)
	for _, p := range pairs {
		sess.Append(
			Turn{Speaker: SpeakerUser, Text: p.UserText},
			Turn{Speaker: SpeakerAssistant, Text: p.AssistantText},
		)
	}
	slog.Info("session restored from persisted log",
		slog.String("session_id", id),
		slog.Int("exchanges", len(pairs)))
	return sess
}

// fresh creates a session seeded with the role's system turn.
func (st *Store) fresh(id string, role toolreg.Role, callerContext string) *Session {
	sess := New(id, role, callerContext)
	if st.compose != nil {
		sess.Append(Turn{Speaker: SpeakerSystem, Text: st.compose(role, callerContext)})
	}
	return sess
}
