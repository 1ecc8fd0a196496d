package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

// Recover turns a panic into the INTERNAL_ERROR envelope carrying the
// request id. http.ErrAbortHandler is re-raised for net/http.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := analysis.RequestIDFromContext(r.Context())
				log.Error("panic serving request",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"),
				)
				IncrementAnalysesFailed()

				w.Header().Set(RequestIDHeader, requestID)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]any{
					"success":    false,
					"error":      "Internal server error. Please try again later.",
					"code":       "INTERNAL_ERROR",
					"request_id": requestID,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
