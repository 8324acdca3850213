package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	appadvisory "github.com/bryanwahyu/regtech-advisor/internal/application/advisory"
	"github.com/bryanwahyu/regtech-advisor/internal/application/monitor"
	"github.com/bryanwahyu/regtech-advisor/internal/application/rules"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/ai"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
	"github.com/bryanwahyu/regtech-advisor/internal/middleware"
)

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Advisory  *appadvisory.Service
	Rules     *rules.Loader
	Exporter  *rules.Exporter
	Validator *rules.Validator
	Monitor   *monitor.Monitor

	Keys            map[string]middleware.Principal
	Limiter         *middleware.RateLimiter // optional
	Health          map[string]middleware.HealthChecker
	MetricsReader   sdkmetric.Reader // optional; adds otel instruments to /metrics
	AllowedOrigins  []string
	MaxDocumentSize int
	Logger          *zap.Logger
}

type Router struct {
	Deps
	log *zap.Logger
}

func NewRouter(d Deps) http.Handler {
	r := &Router{Deps: d, log: d.Logger}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.MaxDocumentSize <= 0 {
		r.MaxDocumentSize = middleware.DefaultMaxDocumentBytes
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(r.log))
	mux.Use(middleware.MetricsMiddleware)
	if len(d.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(d.Keys))
	if d.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(d.Limiter))
	}

	health := middleware.HealthHandler(d.Health)
	mux.Get("/health", health)
	mux.Get("/healthz", health)
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	if d.MetricsReader != nil {
		mux.Get("/metrics", middleware.InstrumentedMetricsHandler(d.MetricsReader))
	} else {
		mux.Get("/metrics", middleware.MetricsHandler)
	}

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)

		rt.Get("/frameworks", r.wrap(r.handleFrameworks))
		rt.Get("/frameworks/{id}/rules", r.wrap(r.handleRules))
		rt.Get("/frameworks/{id}/export", r.wrap(r.handleExport))
		rt.Post("/frameworks/{id}/validate", r.wrap(r.handleValidate))

		rt.Post("/advisory/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/advisory", r.wrap(r.handleHistory))
		rt.Get("/advisory/{ref}", r.wrap(r.handleGetResult))
		rt.Post("/advisory/{ref}/adopt", r.wrap(r.handleAdopt))
		rt.Get("/advisory/{ref}/audit", r.wrap(r.handleAudit))

		rt.Get("/monitor/stats", r.wrap(r.handleMonitorStats))
	})

	return mux
}

// badRequest marks client input errors raised by the handlers themselves.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func invalid(format string, args ...any) error { return badRequest{msg: fmt.Sprintf(format, args...)} }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		code := statusFor(err)
		msg := err.Error()
		if code == http.StatusInternalServerError {
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			msg = "internal server error"
		}
		writeJSON(w, code, map[string]string{"error": msg})
	}
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case appadvisory.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, advisory.ErrUnmatchedCitation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, advisory.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, advisory.ErrLiabilityNotAccepted):
		return http.StatusForbidden
	case errors.As(err, &br),
		errors.Is(err, advisory.ErrInvalidInput),
		errors.Is(err, rules.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, advisory.ErrMalformedResponse),
		errors.Is(err, ai.ErrEmptyResponse),
		errors.Is(err, ai.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, rules.ErrNoArchive):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func frameworkParam(req *http.Request) (compliance.FrameworkID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateFrameworkID(id); err != nil {
		return "", invalid("%v", err)
	}
	return compliance.FrameworkID(id), nil
}

func refParam(req *http.Request) (string, error) {
	ref := chi.URLParam(req, "ref")
	if err := middleware.ValidateAuditRef(ref); err != nil {
		return "", invalid("%v", err)
	}
	return ref, nil
}

func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) error {
	// document plus JSON framing
	req.Body = http.MaxBytesReader(w, req.Body, int64(r.MaxDocumentSize)+64<<10)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return invalid("request body exceeds %d bytes", tooLarge.Limit)
		}
		return invalid("invalid JSON body: %v", err)
	}
	return nil
}

// GET /v1/{tenant}/frameworks
func (r *Router) handleFrameworks(w http.ResponseWriter, req *http.Request) error {
	list, err := r.Rules.Frameworks(req.Context())
	if err != nil {
		return err
	}
	if list == nil {
		list = []*compliance.Framework{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
	return nil
}

// GET /v1/{tenant}/frameworks/{id}/rules
func (r *Router) handleRules(w http.ResponseWriter, req *http.Request) error {
	id, err := frameworkParam(req)
	if err != nil {
		return err
	}
	rs, err := r.Rules.Load(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rs)
	return nil
}

// GET /v1/{tenant}/frameworks/{id}/export?format=json|xml|yaml|openapi&archive=true
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	id, err := frameworkParam(req)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	raw := q.Get("format")
	if raw == "" {
		raw = string(rules.FormatJSON)
	}
	format, err := rules.ParseFormat(raw)
	if err != nil {
		return err
	}

	archive, _ := strconv.ParseBool(q.Get("archive"))
	if archive {
		out, err := r.Exporter.ExportAndArchive(req.Context(), chi.URLParam(req, "tenant"), id, format)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, out)
		return nil
	}

	out, err := r.Exporter.Export(req.Context(), id, format)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(out.Content)
	return err
}

// POST /v1/{tenant}/frameworks/{id}/validate
// Body: {"<controlCode>": <evidence>, ...}
func (r *Router) handleValidate(w http.ResponseWriter, req *http.Request) error {
	id, err := frameworkParam(req)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := r.decode(w, req, &data); err != nil {
		return err
	}
	res, err := r.Validator.Validate(req.Context(), id, data)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/{tenant}/advisory/analyze
// Body: {"frameworkId": "...", "frameworkName": "...", "documentText": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		FrameworkID   string `json:"frameworkId"`
		FrameworkName string `json:"frameworkName"`
		DocumentText  string `json:"documentText"`
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateFrameworkID(body.FrameworkID); err != nil {
		return invalid("%v", err)
	}
	if err := middleware.ValidateDocument(body.DocumentText, r.MaxDocumentSize); err != nil {
		return invalid("%v", err)
	}

	res, err := r.Advisory.AnalyzeDocument(req.Context(), appadvisory.AnalyzeCommand{
		TenantID:      chi.URLParam(req, "tenant"),
		UserID:        middleware.GetUserFromContext(req.Context()),
		FrameworkID:   compliance.FrameworkID(body.FrameworkID),
		FrameworkName: middleware.SanitizeString(body.FrameworkName),
		DocumentText:  body.DocumentText,
	})
	if err != nil {
		middleware.RecordAnalysisFailure(errors.Is(err, advisory.ErrUnmatchedCitation))
		return err
	}
	middleware.RecordAnalysis(len(res.Gaps))
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/{tenant}/advisory/{ref}/adopt
// Body: {"acceptsLiability": true}
func (r *Router) handleAdopt(w http.ResponseWriter, req *http.Request) error {
	ref, err := refParam(req)
	if err != nil {
		return err
	}
	var body struct {
		AcceptsLiability bool `json:"acceptsLiability"`
	}
	if err := r.decode(w, req, &body); err != nil {
		return err
	}
	res, err := r.Advisory.AdoptRecommendation(req.Context(), appadvisory.AdoptCommand{
		TenantID:         chi.URLParam(req, "tenant"),
		UserID:           middleware.GetUserFromContext(req.Context()),
		AuditRef:         ref,
		AcceptsLiability: body.AcceptsLiability,
	})
	if err != nil {
		return err
	}
	middleware.IncrementAdoptions()
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/{tenant}/advisory/{ref}/audit
func (r *Router) handleAudit(w http.ResponseWriter, req *http.Request) error {
	ref, err := refParam(req)
	if err != nil {
		return err
	}
	trail, err := r.Advisory.AuditTrail(req.Context(), chi.URLParam(req, "tenant"), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"auditRef": ref, "events": trail})
	return nil
}

// GET /v1/{tenant}/advisory/{ref}
func (r *Router) handleGetResult(w http.ResponseWriter, req *http.Request) error {
	ref, err := refParam(req)
	if err != nil {
		return err
	}
	res, err := r.Advisory.Get(req.Context(), chi.URLParam(req, "tenant"), ref)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/{tenant}/advisory?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.Advisory.History(req.Context(), chi.URLParam(req, "tenant"),
		middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/monitor/stats
func (r *Router) handleMonitorStats(w http.ResponseWriter, req *http.Request) error {
	if r.Monitor == nil {
		writeJSON(w, http.StatusOK, monitor.Stats{Recent: []monitor.Issue{}})
		return nil
	}
	writeJSON(w, http.StatusOK, r.Monitor.Stats())
	return nil
}
