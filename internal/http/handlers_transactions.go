package http

import (
	"net/http"
	"strconv"
	"time"

	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/services"
)

type transactionsResponse struct {
	Transactions []core.Transaction `json:"transactions"`
	Totals       core.Stats         `json:"totals"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	txs := s.svc.Transactions(f)
	writeJSON(w, http.StatusOK, transactionsResponse{
		Transactions: txs,
		Totals:       ledger.ViewTotals(txs),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var e services.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		writeRequestError(w, err)
		return
	}
	e.Description = sanitizeText(e.Description)
	e.Category = sanitizeText(e.Category)
	e.Source = sanitizeText(e.Source)

	out, err := s.svc.CreateTransaction(r.Context(), e)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if len(out.Added) == 0 {
		// every row was recognised as a duplicate
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
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

	tx, err := s.svc.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeRequestError(w, err)
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Stats(f))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	cats := s.svc.CategoryBreakdown(f)
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Parâmetro top inválido")
			return
		}
		if len(cats) > n {
			cats = cats[:n]
		}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Budget(f))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r, time.Now())
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Daily(year, month))
}

func sanitizePatch(p *ledger.Patch) {
	sanitizePtr(p.Description)
	sanitizePtr(p.Category)
	sanitizePtr(p.Source)
}
