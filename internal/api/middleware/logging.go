package middleware

import (
	"net/http"
	"time"

	"github.com/buildbuddy/engine/pkg/logger"
	"go.uber.org/zap"
)

// Logging logs each request with its id, status and duration.
func Logging(next http.Handler) http.Handler {
	log := logger.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		fields := []zap.Field{
			zap.String("id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		}
		if rw.status >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Info("request", fields...)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
