package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"financas/internal/ai"
	"financas/internal/ai/offline"
	"financas/internal/core"
	"financas/internal/ids"
	"financas/internal/importer"
	"financas/internal/insights"
	"financas/internal/ledger"
	"financas/internal/services"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	l := ledger.New(
		ledger.WithIDs(ids.NewCounter(0)),
		ledger.WithGroups(&ids.SequenceGroups{}),
		ledger.WithPeers(ledger.DefaultPeers()...),
		ledger.WithClock(func() time.Time { return time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC) }),
	)
	advisor := ai.NewService(offline.New())
	svc := services.NewFinanceService(l,
		insights.NewController(l, advisor),
		advisor,
		importer.New(advisor, l, nil),
		importer.NewStaging(advisor, l, nil),
		services.WithPeerIDs(ids.NewCounter(100)),
	)
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = svc.Close()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "203.0.113.7:4321"
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func upload(t *testing.T, srv *Server, path, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="document"; filename="extrato.txt"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "203.0.113.7:4321"
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthReadyAndHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing nosniff header", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}
}

func TestReadyDegraded(t *testing.T) {
	srv := newTestServer(t, Options{Checks: map[string]ReadinessCheck{
		"amqp": func(context.Context) error { return errors.New("dial refused") },
	}})

	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	resp := decode[readyResponse](t, rr)
	if resp.Status != "degraded" || resp.Checks["amqp"] != "dial refused" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestMetricsIncludesApplicationCounters(t *testing.T) {
	srv := newTestServer(t, Options{Metrics: func() map[string]any {
		return map[string]any{"ledger_size": 3}
	}})

	out := decode[map[string]any](t, do(t, srv, http.MethodGet, "/metrics", ""))
	for _, key := range []string{"http", "rate_limit", "security", "ledger_size"} {
		if _, ok := out[key]; !ok {
			t.Fatalf("metrics missing %q: %v", key, out)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"<b>Mercado</b> Pão & Cia","category":"Mercado","amount":"45.90","date":"2024-06-05","type":"expense"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[ledger.AddOutcome](t, rr)
	if len(created.Added) != 1 {
		t.Fatalf("added=%d", len(created.Added))
	}
	tx := created.Added[0]
	if tx.Description != "Mercado Pão & Cia" {
		t.Fatalf("description not sanitized: %q", tx.Description)
	}

	// same occurrence again is suppressed
	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Mercado Pão & Cia","category":"Mercado","amount":"45.90","date":"2024-06-05","type":"expense"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("duplicate status=%d", rr.Code)
	}
	if dup := decode[ledger.AddOutcome](t, rr); len(dup.Suppressed) != 1 {
		t.Fatalf("suppressed=%d", len(dup.Suppressed))
	}

	list := decode[transactionsResponse](t, do(t, srv, http.MethodGet, "/api/transactions?month=2024-06", ""))
	if len(list.Transactions) != 1 || !list.Totals.TotalExpense.Equal(tx.Amount) {
		t.Fatalf("unexpected list: %+v", list)
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions?month=junho", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}

	path := "/api/transactions/" + jsonNumber(tx.ID)
	rr = do(t, srv, http.MethodPatch, path, `{"category":"Alimentação"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decode[core.Transaction](t, rr); got.Category != "Alimentação" {
		t.Fatalf("category=%q", got.Category)
	}

	if rr := do(t, srv, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, path, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, "/api/transactions/abc", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rr.Code)
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"unknown field", `{"descricao":"x"}`, http.StatusBadRequest},
		{"empty description", `{"description":"  ","amount":"10","date":"2024-06-01","type":"expense"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"description":"x","amount":"0","date":"2024-06-01","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"description":"x","amount":"10","date":"2024-06-01","type":"transfer"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"description":"x","amount":"10","date":"01/06/2024","type":"expense"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if decode[errorResponse](t, rr).Error == "" {
				t.Fatalf("missing error message")
			}
		})
	}
}

func TestUnsupportedContentType(t *testing.T) {
	srv := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("description=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, body := range []string{
		`{"description":"Aluguel","category":"Moradia","amount":"1500","date":"2024-06-01","type":"expense"}`,
		`{"description":"Cinema","category":"Lazer","amount":"60","date":"2024-06-02","type":"expense"}`,
		`{"description":"Salário","category":"Receita","amount":"5000","date":"2024-06-05","type":"income"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d", rr.Code)
		}
	}

	stats := decode[core.Stats](t, do(t, srv, http.MethodGet, "/api/stats", ""))
	if !stats.Balance.Equal(decimalOf("3440")) {
		t.Fatalf("balance=%s", stats.Balance)
	}

	cats := decode[[]core.CategoryAmount](t, do(t, srv, http.MethodGet, "/api/analytics/categories?top=1", ""))
	if len(cats) != 1 || cats[0].Name != "Moradia" {
		t.Fatalf("top categories=%+v", cats)
	}
	if rr := do(t, srv, http.MethodGet, "/api/analytics/categories?top=0", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("top=0 status=%d", rr.Code)
	}

	split := decode[core.BudgetSplit](t, do(t, srv, http.MethodGet, "/api/analytics/budget", ""))
	if !split.Needs.Equal(decimalOf("1500")) || !split.Wants.Equal(decimalOf("60")) {
		t.Fatalf("split=%+v", split)
	}

	daily := decode[[]core.DailyTotal](t, do(t, srv, http.MethodGet, "/api/analytics/daily?year=2024&month=2", ""))
	if len(daily) != 29 {
		t.Fatalf("february 2024 days=%d", len(daily))
	}
	if rr := do(t, srv, http.MethodGet, "/api/analytics/daily?month=13", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("month=13 status=%d", rr.Code)
	}
}

func TestPeerEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/peers", `{"name":"Bruna","email":"bru@email.com"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	peer := decode[core.Peer](t, rr)
	if peer.ID != "101" || !strings.Contains(peer.Avatar, "pravatar") {
		t.Fatalf("peer=%+v", peer)
	}
	if rr := do(t, srv, http.MethodPost, "/api/peers", `{"name":" "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions",
		`{"description":"Jantar","category":"Alimentação","amount":"120","date":"2024-06-10","type":"expense","peerId":"101"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("delegated create status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/peers/101/settle", `{"amount":"70"}`); rr.Code != http.StatusCreated {
		t.Fatalf("settle status=%d body=%s", rr.Code, rr.Body.String())
	}

	balances := decode[[]core.PeerBalance](t, do(t, srv, http.MethodGet, "/api/peers/balances", ""))
	var found bool
	for _, b := range balances {
		if b.Peer.ID == "101" {
			found = true
			if !b.Outstanding.Equal(decimalOf("50")) {
				t.Fatalf("outstanding=%s", b.Outstanding)
			}
		}
	}
	if !found {
		t.Fatalf("peer 101 missing from balances: %+v", balances)
	}

	if rr := do(t, srv, http.MethodPatch, "/api/peers/101", `{"name":"Bruna Lima"}`); rr.Code != http.StatusOK {
		t.Fatalf("update status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/peers/999/settle", `{"amount":"1"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown settle status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/peers/101", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/peers/101", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if peers := decode[[]core.Peer](t, do(t, srv, http.MethodGet, "/api/peers", "")); len(peers) != 2 {
		t.Fatalf("peers=%d", len(peers))
	}
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	if got := decode[profileResponse](t, do(t, srv, http.MethodGet, "/api/profile", "")); got.Defined {
		t.Fatalf("profile defined before onboarding")
	}
	rr := do(t, srv, http.MethodPatch, "/api/profile", `{"monthlyIncome":"6000","goals":["Reserva"],"riskProfile":"moderate"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode[profileResponse](t, do(t, srv, http.MethodGet, "/api/profile", ""))
	if !got.Defined || got.Profile == nil || got.Profile.Goals[0] != "Reserva" {
		t.Fatalf("profile=%+v", got)
	}
	if rr := do(t, srv, http.MethodPatch, "/api/profile", `{"riskProfile":"yolo"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid risk status=%d", rr.Code)
	}
}

func TestInsightsAndChat(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/insights/refresh", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("refresh status=%d", rr.Code)
	}
	srv.svc.ClearInsights()
	got := decode[insightsResponse](t, do(t, srv, http.MethodGet, "/api/insights", ""))
	if got.Insights == nil {
		t.Fatalf("insights must encode as a list")
	}
	if rr := do(t, srv, http.MethodDelete, "/api/insights", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("clear status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodPost, "/api/chat", `{"message":"  "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty chat status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodPost, "/api/chat", `{"history":[{"role":"user","text":"oi"}],"message":"Como estou este mês?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status=%d body=%s", rr.Code, rr.Body.String())
	}
	if decode[chatResponse](t, rr).Reply == "" {
		t.Fatalf("empty reply")
	}
}

const statementText = "Extrato Nubank\n2024-06-10 Padaria Pão Quente 12,50\n2024-06-11 Uber viagem 23,90\nSaldo 1.000,00\n"

func TestImportDocument(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := upload(t, srv, "/api/import", "text/plain", []byte(statementText))
	if rr.Code != http.StatusOK {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	res := decode[importer.Result](t, rr)
	if len(res.Added) != 2 || res.BankName != "Nubank" {
		t.Fatalf("result=%+v", res)
	}

	// a second upload of the same statement is fully suppressed
	res = decode[importer.Result](t, upload(t, srv, "/api/import", "", []byte(statementText)))
	if len(res.Added) != 0 || len(res.Suppressed) != 2 {
		t.Fatalf("reimport=%+v", res)
	}

	if rr := upload(t, srv, "/api/import", "text/plain", nil); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty document status=%d", rr.Code)
	}
}

func TestImportTooLarge(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 16})

	rr := upload(t, srv, "/api/import", "text/plain", []byte(statementText))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestImportMissingField(t *testing.T) {
	srv := newTestServer(t, Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("note", "sem arquivo")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestStagingReview(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := upload(t, srv, "/api/import/staging", "text/plain", []byte(statementText))
	if rr.Code != http.StatusOK {
		t.Fatalf("stage status=%d body=%s", rr.Code, rr.Body.String())
	}
	batch := decode[importer.Batch](t, rr)
	if len(batch.Items) != 2 {
		t.Fatalf("staged=%d", len(batch.Items))
	}

	first := "/api/import/staging/" + jsonNumber(batch.Items[0].ID)
	second := "/api/import/staging/" + jsonNumber(batch.Items[1].ID)
	if rr := do(t, srv, http.MethodPatch, first, `{"category":"Alimentação"}`); rr.Code != http.StatusOK {
		t.Fatalf("update staged status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, second, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("remove staged status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, second, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("remove again status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/api/import/staging/commit", `{"source":"Cartão Nubank"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("commit status=%d body=%s", rr.Code, rr.Body.String())
	}
	res := decode[importer.Result](t, rr)
	if len(res.Added) != 1 || res.Added[0].Source != "Cartão Nubank" || res.Added[0].Category != "Alimentação" {
		t.Fatalf("commit=%+v", res)
	}

	if left := decode[importer.Batch](t, do(t, srv, http.MethodGet, "/api/import/staging", "")); len(left.Items) != 0 {
		t.Fatalf("staging not emptied: %+v", left)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/import/staging", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("discard status=%d", rr.Code)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 2})

	body := `{"description":"Café","amount":"5","date":"2024-06-01","type":"expense"}`
	var last int
	for i := 0; i < 3; i++ {
		last = do(t, srv, http.MethodPost, "/api/transactions", body).Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third write status=%d", last)
	}
	if rr := do(t, srv, http.MethodGet, "/api/transactions", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, status=%d", rr.Code)
	}
}
