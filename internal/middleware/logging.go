// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LogMiddleware is an HTTP middleware that logs incoming requests using Logrus.
// Logs the method, path, status and duration of each request.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs a session attaching over WebSocket.
func LogWebSocketConnect(logger *logrus.Logger, remoteAddr string, sid uuid.UUID) {
	logger.WithFields(logrus.Fields{
		"remote":  remoteAddr,
		"session": sid,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs a session going away, with how long it stayed.
func LogWebSocketDisconnect(logger *logrus.Logger, remoteAddr string, sid uuid.UUID, connected time.Duration, err error) {
	fields := logrus.Fields{
		"remote":    remoteAddr,
		"session":   sid,
		"connected": connected.Round(time.Millisecond),
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
