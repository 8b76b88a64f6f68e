package http

import (
	"net/http"

	"financas/internal/ledger"
)

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	res, err := s.svc.Import(r.Context(), doc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	doc, err := readDocument(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	batch, err := s.svc.Stage(r.Context(), doc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleGetStaged(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.StagedBatch())
}

func (s *Server) handleDiscardStaged(w http.ResponseWriter, r *http.Request) {
	s.svc.DiscardStaged()
	w.WriteHeader(http.StatusNoContent)
}

type commitRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleCommitStaged(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeRequestError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.svc.CommitStaged(r.Context(), sanitizeText(req.Source)))
}

func (s *Server) handleUpdateStaged(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}
	var patch ledger.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeRequestError(w, err)
		return
	}
	sanitizePatch(&patch)

	tx, err := s.svc.UpdateStaged(id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRemoveStaged(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if err := s.svc.RemoveStaged(id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
