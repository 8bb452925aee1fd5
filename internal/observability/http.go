package observability

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// maxTraceIDLength bounds caller-supplied trace ids so a hostile client
// cannot stuff arbitrary payloads into logs and response headers.
const maxTraceIDLength = 128

// TraceMiddleware assigns every request a trace id, preferring one supplied
// by the caller so clients can correlate retries with their own records. The
// id rides the request context and is echoed in the response header.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := strings.TrimSpace(r.Header.Get(traceHeader))
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = uuid.NewString()
		}
		w.Header().Set(traceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ContextWithTraceID(r.Context(), traceID)))
	})
}

// LoggingMiddleware emits one line per request once the handler finishes.
// The trace id is not attached here; the logger's handler lifts it from the
// request context, the same way agent and executor log lines get it.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tap := newResponseTap(w)
			next.ServeHTTP(tap, r)
			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", tap.status),
				slog.Int("bytes", tap.written),
				slog.Float64("duration_seconds", time.Since(start).Seconds()),
			)
		})
	}
}

// MetricsMiddleware records request counts and latency against the matched
// route pattern rather than the raw path. Session ids are caller-chosen
// strings, so labelling by path would mint a fresh series per session.
func MetricsMiddleware(routes *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			start := time.Now()
			tap := newResponseTap(w)
			next.ServeHTTP(tap, r)

			status := strconv.Itoa(tap.status)
			route := routeLabel(routes, r)
			httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			httpRequestDurationSeconds.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel resolves the mux pattern that will serve the request, with the
// method prefix stripped since method is its own label. Requests that match
// no route collapse into a single bucket.
func routeLabel(routes *http.ServeMux, r *http.Request) string {
	_, pattern := routes.Handler(r)
	if pattern == "" {
		return "unmatched"
	}
	if _, route, ok := strings.Cut(pattern, " "); ok {
		return route
	}
	return pattern
}

// responseTap observes the status and body size a handler writes. A handler
// that never calls WriteHeader implicitly responds 200.
type responseTap struct {
	http.ResponseWriter
	status  int
	written int
}

func newResponseTap(w http.ResponseWriter) *responseTap {
	return &responseTap{ResponseWriter: w, status: http.StatusOK}
}

func (t *responseTap) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseTap) Write(body []byte) (int, error) {
	n, err := t.ResponseWriter.Write(body)
	t.written += n
	return n, err
}

func (t *responseTap) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
