package http

import (
	"net/http"

	"financas/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ready"}
	status := http.StatusOK

	if len(s.opts.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.opts.Checks))
		for name, check := range s.opts.Checks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
					"check", name,
					log.FieldError, err)
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"http":       s.tracer.GetMetrics(),
		"rate_limit": s.limiter.GetMetrics(),
		"security":   s.detector.GetMetrics(),
	}
	if s.opts.Metrics != nil {
		for k, v := range s.opts.Metrics() {
			out[k] = v
		}
	}
	writeJSON(w, http.StatusOK, out)
}
