package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"financas/internal/ledger"
	"financas/internal/services"
)

func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Peers())
}

func (s *Server) handleCreatePeer(w http.ResponseWriter, r *http.Request) {
	var in services.NewPeer
	if err := decodeJSON(w, r, &in); err != nil {
		writeRequestError(w, err)
		return
	}
	in.Name = sanitizeText(in.Name)
	in.Email = sanitizeText(in.Email)

	peer, err := s.svc.AddPeer(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, peer)
}

func (s *Server) handlePeerBalances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.PeerBalances())
}

func (s *Server) handleUpdatePeer(w http.ResponseWriter, r *http.Request) {
	var patch ledger.PeerPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeRequestError(w, err)
		return
	}
	sanitizePtr(patch.Name)
	sanitizePtr(patch.Email)

	peer, err := s.svc.UpdatePeer(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, peer)
}

func (s *Server) handleDeletePeer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePeer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settleRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleSettlePeer(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	out, err := s.svc.SettlePeer(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
