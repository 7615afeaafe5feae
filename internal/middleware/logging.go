package middleware

import (
	"net/http"
	"time"

	"gator-overflow/internal/utils"

	"go.uber.org/zap"
)

// statusRecorder captures the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs every request and feeds the request and error counters.
// Metrics may be nil.
func RequestLogger(logger *zap.Logger, metrics *utils.MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			if metrics != nil {
				metrics.IncrementRequests()
				if rec.status >= http.StatusInternalServerError {
					metrics.IncrementErrors()
				}
			}

			logger.Debug("Request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
