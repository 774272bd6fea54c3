// Package httpapi is the chat-facing HTTP surface of the assistant.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/feldsher/feldsher/internal/agent"
	"github.com/feldsher/feldsher/internal/clinic"
	"github.com/feldsher/feldsher/internal/session"
	"github.com/feldsher/feldsher/internal/toolreg"
)

// Server handles the HTTP API.
type Server struct {
	agent    *agent.Agent
	clinic   *clinic.DB
	sessions *session.Store
	version  string
}

// New creates the API server.
func New(a *agent.Agent, db *clinic.DB, sessions *session.Store, version string) *Server {
	return &Server{agent: a, clinic: db, sessions: sessions, version: version}
}

// Routes returns the API mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /doctors", s.handleDoctors)
	mux.HandleFunc("GET /appointments", s.handleAppointments)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleEvictSession)
	return mux
}

type chatRequest struct {
	SessionID     string `json:"session_id"`
	Role          string `json:"role"`
	CallerContext string `json:"caller_context"`
	Message       string `json:"message"`
}

type chatResponse struct {
	SessionID   string   `json:"session_id"`
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	role := toolreg.Role(req.Role)
	if req.Role == "" {
		role = toolreg.RolePatient
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply, suggestions, err := s.agent.ProcessMessage(r.Context(), req.SessionID, role, req.CallerContext, req.Message)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		slog.Error("chat turn failed",
			slog.String("session_id", req.SessionID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:   req.SessionID,
		Reply:       reply,
		Suggestions: suggestions,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "feldsher",
		"version":  s.version,
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleDoctors(w http.ResponseWriter, r *http.Request) {
	docs, err := s.clinic.Doctors(r.Context(), r.URL.Query().Get("specialization"))
	if err != nil {
		slog.Error("list doctors failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, map[string]any{
			"doctor_id":      d.ID,
			"name":           d.Name,
			"specialization": d.Specialization,
			"working_hours":  d.AvailableFrom + " - " + d.AvailableTo,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := clinic.AppointmentFilter{
		PatientEmail: q.Get("patient_email"),
		Date:         q.Get("date"),
		Status:       q.Get("status"),
	}
	appts, err := s.clinic.Appointments(r.Context(), f)
	if err != nil {
		slog.Error("list appointments failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(appts), "appointments": appts})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.clinic.AppointmentStats(r.Context(), 0, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		slog.Error("stats query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEvictSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Evict(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
