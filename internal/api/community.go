package api

import (
	"net/http"

	"EnPeak/internal/community"
)

const publishedMessage = "시나리오가 성공적으로 공유되었습니다!"

type publishRequest struct {
	Scenario *community.Scenario `json:"scenario"`
	Author   string              `json:"author"`
}

type authoringRequest struct {
	Context  community.DraftContext `json:"context"`
	Messages []community.Message    `json:"messages"`
	Title    string                 `json:"title"`
}

func (s *Server) handleCommunityList(w http.ResponseWriter, r *http.Request) {
	if s.services.Community == nil {
		writeError(w, r, unavailable("community"))
		return
	}
	result, err := s.services.Community.List(r.Context(), community.ListOptions{
		Sort:  r.URL.Query().Get("sort"),
		Limit: queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if result.Scenarios == nil {
		result.Scenarios = []*community.Scenario{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommunityPublish(w http.ResponseWriter, r *http.Request) {
	if s.services.Community == nil {
		writeError(w, r, unavailable("community"))
		return
	}
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	published, err := s.services.Community.Publish(r.Context(), req.Scenario, req.Author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":      "published",
		"scenario_id": published.ID,
		"message":     publishedMessage,
	})
}

func (s *Server) handleCommunityGet(w http.ResponseWriter, r *http.Request) {
	if s.services.Community == nil {
		writeError(w, r, unavailable("community"))
		return
	}
	item, err := s.services.Community.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleCommunityDelete(w http.ResponseWriter, r *http.Request) {
	if s.services.Community == nil {
		writeError(w, r, unavailable("community"))
		return
	}
	if err := s.services.Community.Delete(r.Context(), r.PathValue("id"), r.URL.Query().Get("author")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCommunityLike(w http.ResponseWriter, r *http.Request) {
	if s.services.Community == nil {
		writeError(w, r, unavailable("community"))
		return
	}
	likes, err := s.services.Community.Like(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"likes": likes})
}

func (s *Server) handleAuthoringCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.authoringRequest(w, r)
	if !ok {
		return
	}
	result, err := s.services.Authoring.Create(r.Context(), req.Context)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAuthoringRefine(w http.ResponseWriter, r *http.Request) {
	req, ok := s.authoringRequest(w, r)
	if !ok {
		return
	}
	result, err := s.services.Authoring.Refine(r.Context(), req.Context, req.Messages)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAuthoringFinalize(w http.ResponseWriter, r *http.Request) {
	req, ok := s.authoringRequest(w, r)
	if !ok {
		return
	}
	result, err := s.services.Authoring.Finalize(r.Context(), req.Context, req.Messages, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) authoringRequest(w http.ResponseWriter, r *http.Request) (authoringRequest, bool) {
	var req authoringRequest
	if s.services.Authoring == nil {
		writeError(w, r, unavailable("authoring"))
		return req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return req, false
	}
	return req, true
}
