package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"financas/internal/ai"
	"financas/internal/ledger"
)

// documentField is the multipart field carrying the uploaded statement.
const documentField = "document"

var (
	errBadJSON       = errors.New("invalid JSON body")
	errBadID         = errors.New("invalid id")
	errMissingFile   = errors.New("missing document")
	errFileTooLarge  = errors.New("document too large")
	strictHTMLPolicy = bluemonday.StrictPolicy()
)

// sanitizeText strips markup from free text typed by the user. Entities the
// policy produces are decoded back so "Pão & Cia" survives unchanged.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictHTMLPolicy.Sanitize(s)))
}

func sanitizePtr(p *string) {
	if p != nil {
		*p = sanitizeText(*p)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// parseFilter reads ?month=YYYY-MM&q=text. A malformed month is an error.
func parseFilter(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	f := ledger.Filter{
		Month: strings.TrimSpace(q.Get("month")),
		Query: strings.TrimSpace(q.Get("q")),
	}
	if f.Month != "" {
		if _, err := time.Parse("2006-01", f.Month); err != nil {
			return ledger.Filter{}, fmt.Errorf("invalid month %q", f.Month)
		}
	}
	return f, nil
}

// parseYearMonth extracts year and month from query parameters.
// Returns the current UTC year/month as defaults if not provided.
func parseYearMonth(r *http.Request, now time.Time) (int, time.Month, error) {
	now = now.UTC()
	year, month := now.Year(), now.Month()

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// readDocument pulls the uploaded statement out of a multipart request.
func readDocument(w http.ResponseWriter, r *http.Request, maxBytes int64) (ai.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ai.Document{}, errFileTooLarge
		}
		return ai.Document{}, fmt.Errorf("%w: %v", errMissingFile, err)
	}

	file, header, err := r.FormFile(documentField)
	if err != nil {
		return ai.Document{}, errMissingFile
	}
	defer file.Close()

	if header.Size > maxBytes {
		return ai.Document{}, errFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return ai.Document{}, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return ai.Document{}, errFileTooLarge
	}

	return ai.Document{Data: data, MimeType: documentType(header.Header.Get("Content-Type"), data)}, nil
}

// documentType trusts a declared type, falling back to content sniffing.
func documentType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}

func writeRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Arquivo muito grande")
	case errors.Is(err, errMissingFile):
		writeError(w, http.StatusBadRequest, "Envie o arquivo no campo 'document'")
	case errors.Is(err, errBadID):
		writeError(w, http.StatusBadRequest, "Identificador inválido")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
