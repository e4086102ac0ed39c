package health

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// Response is the body of GET /health.
type Response struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is one Result as JSON.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func (r Result) response() CheckResponse {
	cr := CheckResponse{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		cr.Error = r.Error.Error()
	}
	return cr
}

// RegisterHandlers mounts the probes on router:
//
//	/healthz        liveness, always 200 OK
//	/readyz         OK, DEGRADED or UNHEALTHY; 503 only when unhealthy
//	/health         every check as JSON
//	/health/{name}  one check as JSON, 404 for an unknown name
func RegisterHandlers(router *mux.Router, agg *Aggregator) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		s := OverallStatus(agg.CheckAll(r.Context()))
		body := strings.ToUpper(s.String())
		if s == StatusHealthy {
			body = "OK"
		}
		writeText(w, s.HTTPStatus(), body)
	}).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		s := OverallStatus(results)
		resp := Response{
			Status:    s.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}
		for name, res := range results {
			resp.Checks[name] = res.response()
		}
		writeJSON(w, s.HTTPStatus(), resp)
	}).Methods(http.MethodGet)

	router.HandleFunc("/health/{name}", func(w http.ResponseWriter, r *http.Request) {
		res, err := agg.Check(r.Context(), mux.Vars(r)["name"])
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, res.Status.HTTPStatus(), res.response())
	}).Methods(http.MethodGet)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
