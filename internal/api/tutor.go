package api

import (
	"net/http"

	"EnPeak/internal/tutor"
)

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type grammarRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

type quickTipRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.services.Tutor == nil {
		writeError(w, r, unavailable("tutor"))
		return
	}
	var req tutor.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.services.Tutor.Chat(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	if s.services.Tutor == nil {
		writeError(w, r, unavailable("tutor"))
		return
	}
	cleared, err := s.services.Tutor.ClearConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := "not_found"
	if cleared {
		status = "cleared"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.services.Tutor == nil {
		writeError(w, r, unavailable("tutor"))
		return
	}
	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	translation, err := s.services.Tutor.Translate(r.Context(), req.Text, req.TargetLang)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"translation": translation})
}

func (s *Server) handleGrammar(w http.ResponseWriter, r *http.Request) {
	if s.services.Tutor == nil {
		writeError(w, r, unavailable("tutor"))
		return
	}
	var req grammarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	feedback, err := s.services.Tutor.Grammar(r.Context(), req.Text, req.Context)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (s *Server) handleQuickTip(w http.ResponseWriter, r *http.Request) {
	if s.services.Tutor == nil {
		writeError(w, r, unavailable("tutor"))
		return
	}
	var req quickTipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := required(req.Text, "text"); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tip": s.services.Tutor.QuickTip(r.Context(), req.Text)})
}
