package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID keeps the caller's request id, or mints one, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := internal.ContextWithRequestID(r.Context(), requestID)
		ctx = logger.With(ctx, "request_id", requestID)

		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
