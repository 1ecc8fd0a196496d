package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const RequestIDHeader = "X-Request-ID"

// RequestID gives every request a fresh UUID v4, stored in the context and
// echoed in the X-Request-ID response header. Incoming ids are ignored.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(analysis.ContextWithRequestID(r.Context(), id)))
	})
}
