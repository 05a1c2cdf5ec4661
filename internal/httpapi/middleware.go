package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deepdreamgames/pachka/internal/metrics"
)

// requestIDMiddleware assigns a UUID correlation id to every request.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), id)))
	})
}

// loggingMiddleware records one structured log line per request.
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("http request",
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			m.ObserveRequest(routeLabel(r), statusLabel(sw.status), time.Since(start))
		})
	}
}

func routeLabel(r *http.Request) string {
	if pattern := chiRoutePattern(r); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// normalizeStructuralSegments lower-cases the fixed path tokens the wire
// protocol treats as case-insensitive ("-", "v1", "search", "latest")
// before chi's exact-match routing sees the path, leaving the package id
// and file name segments untouched.
func normalizeStructuralSegments(next http.Handler) http.Handler {
	structural := map[string]bool{"-": true, "v1": true, "search": true, "latest": true}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segments := strings.Split(r.URL.Path, "/")
		changed := false
		for i, seg := range segments {
			lower := strings.ToLower(seg)
			if structural[lower] && seg != lower {
				segments[i] = lower
				changed = true
			}
		}
		if changed {
			r.URL.Path = strings.Join(segments, "/")
		}
		next.ServeHTTP(w, r)
	})
}
