package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/feldsher/feldsher/internal/agent"
	"github.com/feldsher/feldsher/internal/clinic"
	"github.com/feldsher/feldsher/internal/provider"
	"github.com/feldsher/feldsher/internal/session"
	"github.com/feldsher/feldsher/internal/toolreg"
)

// staticChain answers every provider call with the same reply.
type staticChain struct {
	reply string
}

func (c *staticChain) Send(context.Context, []provider.Message, []provider.ToolDefinition, int) (*provider.Response, int, error) {
	return &provider.Response{Content: c.reply, FinishReason: "stop"}, 0, nil
}

func (c *staticChain) CandidateName(int) string { return "static" }

func newTestServer(t *testing.T, reply string) (*Server, *session.Store) {
	t.Helper()
	db, err := clinic.Open(filepath.Join(t.TempDir(), "clinic.db"))
	if err != nil {
		t.Fatalf("open clinic: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := toolreg.NewRegistry()
	reg.MustRegister(&toolreg.Definition{
		Name: "list_doctors", Description: "list",
		Roles: []toolreg.Role{toolreg.RolePatient, toolreg.RoleDoctor},
		Handler: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"ok": true}, nil
		},
	})
	sessions := session.NewStore(nil, func(role toolreg.Role, _ string) string {
		return "system"
	})
	a := agent.New(&staticChain{reply: reply}, reg, sessions, nil)
	return New(a, db, sessions, "test"), sessions
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s response: %v\n%s", method, path, err, rr.Body.String())
		}
	}
	return rr, decoded
}

func TestChatEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "Hello! [SUGGESTIONS: Book an appointment | List doctors]")
	mux := srv.Routes()

	rr, body := doJSON(t, mux, http.MethodPost, "/chat", `{"message": "hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if body["reply"] != "Hello!" {
		t.Errorf("reply = %v", body["reply"])
	}
	if body["session_id"] == "" {
		t.Error("no session id generated")
	}
	suggs := body["suggestions"].([]any)
	if len(suggs) != 2 || suggs[0] != "Book an appointment" {
		t.Errorf("suggestions = %v", suggs)
	}
}

func TestChatEndpointReusesSession(t *testing.T) {
	srv, sessions := newTestServer(t, "ok")
	mux := srv.Routes()

	_, body := doJSON(t, mux, http.MethodPost, "/chat", `{"session_id": "fixed", "message": "one"}`)
	if body["session_id"] != "fixed" {
		t.Errorf("session id = %v", body["session_id"])
	}
	doJSON(t, mux, http.MethodPost, "/chat", `{"session_id": "fixed", "message": "two"}`)
	if sessions.Len() != 1 {
		t.Errorf("resident sessions = %d, want 1", sessions.Len())
	}
}

func TestChatEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t, "ok")
	mux := srv.Routes()

	rr, _ := doJSON(t, mux, http.MethodPost, "/chat", `{"message": ""}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d", rr.Code)
	}
	rr, _ = doJSON(t, mux, http.MethodPost, "/chat", `{"message": "hi", "role": "superuser"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad role status = %d", rr.Code)
	}
	rr, _ = doJSON(t, mux, http.MethodPost, "/chat", `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "ok")
	rr, body := doJSON(t, srv.Routes(), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestDoctorsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "ok")
	rr, body := doJSON(t, srv.Routes(), http.MethodGet, "/doctors?specialization=general", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	docs := body["doctors"].([]any)
	if len(docs) != 2 {
		t.Errorf("doctors = %d, want 2", len(docs))
	}
}

func TestEvictSessionEndpoint(t *testing.T) {
	srv, sessions := newTestServer(t, "ok")
	mux := srv.Routes()

	doJSON(t, mux, http.MethodPost, "/chat", `{"session_id": "gone", "message": "hi"}`)
	if sessions.Len() != 1 {
		t.Fatalf("resident sessions = %d", sessions.Len())
	}
	rr, _ := doJSON(t, mux, http.MethodDelete, "/sessions/gone", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d", rr.Code)
	}
	if sessions.Len() != 0 {
		t.Errorf("session not evicted")
	}
}
