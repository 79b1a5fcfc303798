package middleware

import (
	"net/http"
	"time"

	"github.com/HammerMeetNail/drawmaster/internal/handlers"
	"github.com/HammerMeetNail/drawmaster/internal/logging"
)

// responseRecorder wraps http.ResponseWriter to capture status code and size.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default
	}
	return &RequestLogger{logger: logger}
}

// Apply logs one line per request. It must run inside Authenticate to see
// the caller's uid.
func (l *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		fields := logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.statusCode,
			"size":        recorder.size,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": GetClientIP(r),
		}
		if id := handlers.GetIdentityFromContext(r.Context()); id != nil {
			fields["uid"] = id.UID
		}

		switch {
		case recorder.statusCode >= 500:
			l.logger.Error("HTTP request", fields)
		case recorder.statusCode >= 400:
			l.logger.Warn("HTTP request", fields)
		default:
			l.logger.Info("HTTP request", fields)
		}
	})
}
