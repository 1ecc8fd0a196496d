package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appanalysis "github.com/bryanwahyu/unitecon/internal/application/analysis"
	domain "github.com/bryanwahyu/unitecon/internal/domain/analysis"
	"github.com/bryanwahyu/unitecon/internal/middleware"
)

// Error codes in response envelopes.
const (
	CodeTooLarge    = "REQUEST_TOO_LARGE"
	CodeValidation  = "VALIDATION_ERROR"
	CodeInternal    = "INTERNAL_ERROR"
	CodeInvalidJSON = "INVALID_JSON"
)

type Options struct {
	Disclaimer  string
	CORSOrigins []string
	// Limiter guards the analyze routes; nil disables rate limiting.
	Limiter *middleware.RateLimiter
	Health  map[string]middleware.HealthChecker
	Log     *zap.Logger
}

type Router struct {
	analysisSvc *appanalysis.Service
	disclaimer  string
	log         *zap.Logger
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := &Router{analysisSvc: svc, disclaimer: opts.Disclaimer, log: log}

	mux := chi.NewRouter()
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.Recover(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/api/metrics", r.handleMetricDescriptions)
	mux.Get("/api/status/memory", middleware.MetricsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Group(func(rt chi.Router) {
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimit(opts.Limiter))
		}
		rt.Post("/api/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/api/v1/analyze", r.wrap(r.handleAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorResponse struct {
	Success   bool                `json:"success"`
	Error     string              `json:"error"`
	Code      string              `json:"code"`
	Details   map[string][]string `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// wrap is the only place errors become HTTP responses.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var ve *domain.ValidationError
		var ie *domain.InternalError
		switch {
		case errors.Is(err, domain.ErrRequestTooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("Request body exceeds %d bytes", domain.MaxBodyBytes),
				Code:  CodeTooLarge,
			})
		case errors.Is(err, domain.ErrMalformedRequest):
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "Request body must be a JSON object",
				Code:  CodeInvalidJSON,
			})
		case errors.As(err, &ve):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error:   ve.Message,
				Code:    CodeValidation,
				Details: ve.Fields,
			})
		default:
			requestID := domain.RequestIDFromContext(req.Context())
			if errors.As(err, &ie) {
				requestID = ie.RequestID
			} else {
				// service errors are logged where they happen; anything else is new here
				r.log.Error("unhandled error", zap.String("request_id", requestID), zap.Error(err))
			}
			middleware.IncrementAnalysesFailed()
			w.Header().Set(middleware.RequestIDHeader, requestID)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:     "Internal server error. Please try again later.",
				Code:      CodeInternal,
				RequestID: requestID,
			})
		}
	}
}

type analyzeResponse struct {
	Success    bool          `json:"success"`
	Analysis   domain.Result `json:"analysis"`
	FromCache  bool          `json:"from_cache"`
	Disclaimer string        `json:"disclaimer"`
	Timestamp  string        `json:"timestamp"`
}

// POST /api/analyze
// Body: {"startup_idea": "...", "description": "...", "additional_info": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	// one byte past the limit is enough to know it is too large
	body, err := io.ReadAll(io.LimitReader(req.Body, domain.MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", domain.ErrMalformedRequest, err)
	}

	lang := appanalysis.MatchLanguage(req.Header.Get("Accept-Language"))
	out, err := r.analysisSvc.Analyze(req.Context(), body, lang)
	if err != nil {
		return err
	}

	middleware.RecordAnalysis(out.FromCache, out.Result.Degraded())
	writeJSON(w, http.StatusOK, analyzeResponse{
		Success:    true,
		Analysis:   out.Result,
		FromCache:  out.FromCache,
		Disclaimer: r.disclaimer,
		Timestamp:  out.At.UTC().Format(time.RFC3339),
	})
	return nil
}

// GET /api/metrics
func (r *Router) handleMetricDescriptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"metrics":         domain.Metrics,
		"market_insights": domain.MarketInsights,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
