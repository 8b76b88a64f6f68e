package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"financas/internal/ai"
	"financas/internal/core"
	"financas/internal/importer"
	"financas/internal/log"
	"financas/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps domain errors to status codes. Unknown errors are
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
	writeError(w, status, message)
}

var fieldMessages = map[error]string{
	core.ErrEmptyDescription:    "Descrição é obrigatória",
	core.ErrDescriptionTooLong:  "Descrição muito longa (máx. 200 caracteres)",
	core.ErrInvalidAmount:       "Valor inválido",
	core.ErrInvalidDate:         "Data inválida (use AAAA-MM-DD)",
	core.ErrInvalidType:         "Tipo deve ser income ou expense",
	core.ErrInvalidInstallments: "Parcelas inválidas",
	services.ErrEmptyPeerName:   "Nome é obrigatório",
	services.ErrInvalidProfile:  "Perfil inválido",
	services.ErrEmptyMessage:    "Mensagem é obrigatória",
	ai.ErrEmptyDocument:         "Documento vazio",
}

func classify(err error) (int, string) {
	for target, msg := range fieldMessages {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, msg
		}
	}
	switch {
	case errors.Is(err, services.ErrTransactionNotFound):
		return http.StatusNotFound, "Transação não encontrada"
	case errors.Is(err, services.ErrPeerNotFound):
		return http.StatusNotFound, "Pessoa não encontrada"
	case errors.Is(err, importer.ErrStagedItemNotFound):
		return http.StatusNotFound, "Item não encontrado na revisão"
	case errors.Is(err, ai.ErrUnsupportedDocument):
		return http.StatusUnsupportedMediaType, "Tipo de documento não suportado"
	default:
		return http.StatusInternalServerError, "Erro interno"
	}
}
