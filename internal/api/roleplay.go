package api

import (
	"net/http"

	"EnPeak/internal/scenario"
)

type startRequest struct {
	ScenarioID string `json:"scenario_id"`
	UserLevel  string `json:"user_level"`
}

type turnRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

type endRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	if s.services.Roleplay == nil {
		writeError(w, r, unavailable("roleplay"))
		return
	}
	q := r.URL.Query()
	filter := scenario.Filter{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Mode:       scenario.Mode(q.Get("mode")),
	}
	items, err := s.services.Roleplay.ListScenarios(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []scenario.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": items})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if s.services.Roleplay == nil {
		writeError(w, r, unavailable("roleplay"))
		return
	}
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := required(req.ScenarioID, "scenario_id"); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.services.Roleplay.StartSession(r.Context(), req.ScenarioID, req.UserLevel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if s.services.Roleplay == nil {
		writeError(w, r, unavailable("roleplay"))
		return
	}
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := required(req.SessionID, "session_id"); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.services.Roleplay.Advance(r.Context(), req.SessionID, req.UserMessage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if s.services.Roleplay == nil {
		writeError(w, r, unavailable("roleplay"))
		return
	}
	var req endRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := required(req.SessionID, "session_id"); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.services.Roleplay.End(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.services.Roleplay == nil {
		writeError(w, r, unavailable("roleplay"))
		return
	}
	sess, err := s.services.Roleplay.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.services.Roleplay == nil {
		writeError(w, r, unavailable("roleplay"))
		return
	}
	reports, err := s.services.Roleplay.Reports(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
