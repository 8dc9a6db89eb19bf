package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
	"github.com/juzgadolab/sentencia-ciudadana/internal/core/ports"
	"github.com/juzgadolab/sentencia-ciudadana/internal/observability/metrics"
)

// DefaultWarningText is the legal disclaimer attached to every delivered
// brief. Deployments override it through configuration.
const DefaultWarningText = "Este resumen fue generado automáticamente y tiene carácter informativo. " +
	"No sustituye el texto oficial de la sentencia ni constituye asesoría jurídica."

type Router struct {
	submitter ports.BriefSubmitter
	reader    ports.BriefReader
	changes   ports.ChangeRequester
	feedback  ports.FeedbackRecorder
	stages    ports.StageInspector

	metrics        *metrics.HTTPServerMetrics
	metricsHandler http.Handler
	service        string
	warningText    string

	limits TrafficLimits
}

func NewRouter(
	submitter ports.BriefSubmitter,
	reader ports.BriefReader,
	changes ports.ChangeRequester,
	feedback ports.FeedbackRecorder,
	stages ports.StageInspector,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
	warningText string,
	limits TrafficLimits,
) *Router {
	if warningText == "" {
		warningText = DefaultWarningText
	}
	return &Router{
		submitter:      submitter,
		reader:         reader,
		changes:        changes,
		feedback:       feedback,
		stages:         stages,
		metrics:        httpMetrics,
		metricsHandler: httpMetrics.Handler(),
		service:        service,
		warningText:    warningText,
		limits:         limits,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metricsHandler)
	mux.HandleFunc("/api/sentencia", rt.submitSentencia)
	mux.HandleFunc("/api/sentencia/", rt.sentenciaSubroutes)
	mux.HandleFunc("/api/feedback", rt.handleFeedback)

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = trafficControlMiddleware(rt.limits, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitSentencia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Documents []string `json:"documents"`
		Images    []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Documents) == 0 && len(req.Images) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one document or image is required"})
		return
	}

	receipt, err := rt.submitter.Submit(r.Context(), req.Documents, req.Images)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordBriefSubmitted(rt.service)
	if receipt.Skipped > 0 {
		rt.metrics.RecordSkippedSources(rt.service, receipt.Skipped)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":        "QUEUED",
		"hash":          receipt.Fingerprint,
		"complete_text": receipt.CompleteText,
		"documents":     receipt.Documents,
		"images":        receipt.Images,
		"skipped":       receipt.Skipped,
	})
}

// sentenciaSubroutes serves /api/sentencia/{hash}, …/{hash}/status and
// …/{hash}/request-changes.
func (rt *Router) sentenciaSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sentencia/")
	hash, sub, _ := strings.Cut(rest, "/")
	if hash == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sentencia hash is required"})
		return
	}

	switch sub {
	case "":
		rt.fetchSentencia(w, r, hash)
	case "status":
		rt.sentenciaStatus(w, r, hash)
	case "request-changes":
		rt.requestChanges(w, r, hash)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown route"})
	}
}

func (rt *Router) fetchSentencia(w http.ResponseWriter, r *http.Request, hash string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	text, err := rt.reader.Fetch(r.Context(), hash)
	if err != nil {
		rt.metrics.RecordBriefFetch(rt.service, false)
		writeError(w, err)
		return
	}

	rt.metrics.RecordBriefFetch(rt.service, true)
	writeJSON(w, http.StatusOK, map[string]string{
		"sentence": text,
		"warning":  rt.warningText,
	})
}

func (rt *Router) sentenciaStatus(w http.ResponseWriter, r *http.Request, hash string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	record, err := rt.stages.Stage(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) requestChanges(w http.ResponseWriter, r *http.Request, hash string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Sentence string `json:"sentence"`
		Changes  string `json:"changes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.changes.RequestChanges(r.Context(), hash, req.Sentence, req.Changes); err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordChangeRequest(rt.service)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "QUEUED"})
}

func (rt *Router) handleFeedback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Feedback string `json:"feedback"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if err := rt.feedback.Record(r.Context(), req.Feedback); err != nil {
			writeError(w, err)
			return
		}
		rt.metrics.RecordFeedbackEntry(rt.service)
		writeJSON(w, http.StatusCreated, map[string]string{"status": "RECORDED"})
	case http.MethodDelete:
		if err := rt.feedback.ClearAll(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
