package monitoring

import (
	"net/http"
	"strconv"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func statusLabel(code int) string {
	return strconv.Itoa(code)
}

// Controller names for the controller label. Classification follows the
// path shape: no bucket segment is the service controller, bucket only is
// the bucket controller, bucket plus key is the object controller.
func controllerLabel(path string) string {
	trimmed := path
	for len(trimmed) > 0 && trimmed[0] == '/' {
		trimmed = trimmed[1:]
	}
	if trimmed == "" {
		return "service"
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '/' {
			if i == len(trimmed)-1 {
				return "bucket"
			}
			return "object"
		}
	}
	return "bucket"
}

// HTTPMiddleware records Prometheus metrics for inbound requests.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ActiveConnections.Inc()
		defer ActiveConnections.Dec()

		next.ServeHTTP(wrapped, r)

		controller := controllerLabel(r.URL.Path)
		RequestsTotal.WithLabelValues(r.Method, controller, statusLabel(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, controller).Observe(time.Since(start).Seconds())
	})
}
