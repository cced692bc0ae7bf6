package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/inspection-sync/internal/application/ai"
	"github.com/bryanwahyu/inspection-sync/internal/application/ledger"
	appnotices "github.com/bryanwahyu/inspection-sync/internal/application/notices"
	"github.com/bryanwahyu/inspection-sync/internal/application/scheduling"
	appsyncs "github.com/bryanwahyu/inspection-sync/internal/application/syncs"
	domai "github.com/bryanwahyu/inspection-sync/internal/domain/ai"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/presence"
	"github.com/bryanwahyu/inspection-sync/internal/middleware"
)

// maxBodyBytes bounds JSON request bodies; photo uploads have their own cap.
const maxBodyBytes = 8 << 20

// Deps are the services behind the HTTP surface. Nil services disable
// their routes' backing feature but keep the routes registered.
type Deps struct {
	Sync       *appsyncs.Service
	Scheduling *scheduling.Service
	Ledger     *ledger.Service
	Notices    *appnotices.Service
	AI         *appai.Service
	Presence   presence.Registry

	Metrics     *middleware.Metrics
	Health      map[string]middleware.HealthChecker
	APIKeys     map[string]string
	CORSOrigins []string
	RateLimiter *middleware.RateLimiter
	RateWindow  time.Duration
	Log         *zap.Logger
}

type Router struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	r := &Router{Deps: d}
	mux := chi.NewRouter()

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(d.Log))
	mux.Use(d.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.ActorHeader},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", d.Metrics.Handler)

	mux.Route("/v1/{agency}", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(d.APIKeys))
		rt.Use(middleware.RequireAgency)
		if d.RateLimiter != nil {
			rt.Use(middleware.RateLimit(d.RateLimiter, d.RateWindow))
		}

		rt.Post("/sync", r.wrap(r.handleSync))
		rt.Get("/sync/{id}", r.wrap(r.handleGetSync))

		rt.Post("/schedules", r.wrap(r.handleSchedule))
		rt.Post("/inspections/{id}/reschedule", r.wrap(r.handleReschedule))
		rt.Post("/inspections/{id}/result", r.wrap(r.handleResult))
		rt.Get("/inspections/{id}/notices", r.wrap(r.handleNotices))
		rt.Post("/autoroute", r.wrap(r.handleAutoRoute))
		rt.Get("/units/due", r.wrap(r.handleUnitsDue))

		rt.Get("/deficiencies", r.wrap(r.handleDeficiencies))
		rt.Get("/deficiencies/export", r.wrap(r.handleExport))
		rt.Post("/deficiencies/{id}/photos", r.wrap(r.handlePhoto))

		rt.Post("/ai/suggest", r.wrap(r.handleSuggest))

		rt.Get("/presence", r.wrap(r.handleOnline))
		rt.Post("/presence", r.wrap(r.handleConnect))
		rt.Delete("/presence/{user}", r.wrap(r.handleDisconnect))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error        string            `json:"error"`
	Field        string            `json:"field,omitempty"`
	Violations   []errs.Violation  `json:"violations,omitempty"`
	ServerRecord any               `json:"serverRecord,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, body := r.classify(err)
			if status >= 500 {
				r.Log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			}
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "60")
			}
			writeJSON(w, status, body)
		}
	}
}

func (r *Router) classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var ve *errs.ValidationError
	var ce *errs.ConflictError
	var be *badRequest
	switch {
	case errors.As(err, &be):
		return http.StatusBadRequest, body
	case errors.As(err, &ve):
		body.Violations = ve.Violations
		body.Field = errs.Field(err)
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &ce):
		body.ServerRecord = ce.Current
		return http.StatusConflict, body
	case errs.IsNotFound(err):
		return http.StatusNotFound, body
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorBody{Error: "ai quota exceeded"}
	case errs.IsTransaction(err):
		return http.StatusServiceUnavailable, body
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}

// badRequest marks malformed input that never reached a service.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func bad(msg string) error { return &badRequest{msg: msg} }

func decode(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return bad("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func agencyOf(req *http.Request) string {
	return chi.URLParam(req, "agency")
}

func actorOf(req *http.Request) string {
	return middleware.ActorFromContext(req.Context())
}

func unavailable(feature string) error {
	return &errs.TransactionError{Op: feature, Err: errors.New("not configured")}
}
