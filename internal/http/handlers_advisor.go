package http

import (
	"net/http"

	"financas/internal/ai"
	"financas/internal/core"
	"financas/internal/ledger"
)

type profileResponse struct {
	Defined bool              `json:"defined"`
	Profile *core.UserProfile `json:"profile,omitempty"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, ok := s.svc.Profile()
	resp := profileResponse{Defined: ok}
	if ok {
		resp.Profile = &profile
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch ledger.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeRequestError(w, err)
		return
	}
	for i, g := range patch.Goals {
		patch.Goals[i] = sanitizeText(g)
	}

	profile, err := s.svc.UpdateProfile(r.Context(), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Defined: true, Profile: &profile})
}

type insightsResponse struct {
	Insights   []core.Insight `json:"insights"`
	Refreshing bool           `json:"refreshing"`
}

func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	list := s.svc.Insights()
	if list == nil {
		list = []core.Insight{}
	}
	writeJSON(w, http.StatusOK, insightsResponse{
		Insights:   list,
		Refreshing: s.svc.IsRefreshingInsights(),
	})
}

func (s *Server) handleRefreshInsights(w http.ResponseWriter, r *http.Request) {
	started := s.svc.RefreshInsights()
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (s *Server) handleClearInsights(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearInsights()
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	History []ai.ChatMessage `json:"history"`
	Message string           `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	reply, err := s.svc.Chat(r.Context(), req.History, sanitizeText(req.Message))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
