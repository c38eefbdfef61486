package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 128

// RequestIDFromContext returns the request id or an empty string when unavailable.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

// RequestID accepts or generates an X-Request-ID, echoes it on the response
// and logs every request with it.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startedAt := time.Now()
			requestID := normalizeRequestID(r.Header.Get(RequestIDHeader))
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, requestID)
			rec := newStatusRecorder(w)
			ctx := context.WithValue(r.Context(), requestIDKey, requestID)

			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.InfoContext(ctx, "http request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"latency_ms", float64(time.Since(startedAt).Microseconds())/1000.0,
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

func normalizeRequestID(raw string) string {
	candidate := strings.TrimSpace(raw)
	if len(candidate) > maxRequestIDLength {
		candidate = candidate[:maxRequestIDLength]
	}
	// Header values are echoed back; drop anything that is not printable ASCII.
	for _, c := range candidate {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return candidate
}
