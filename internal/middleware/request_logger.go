package middleware

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"resale-api/internal/logger"
	"resale-api/internal/models"
	"resale-api/internal/services"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

type RequestLogger struct {
	logService services.RequestLogService
}

func NewRequestLogger(logService services.RequestLogService) *RequestLogger {
	return &RequestLogger{
		logService: logService,
	}
}

func (rl *RequestLogger) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		user, ok := services.UserFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		summary := createRequestSummary(r)

		next.ServeHTTP(rw, r)

		status := models.StatusSuccess
		if rw.status >= 400 {
			status = models.StatusError
		}

		err := rl.logService.LogRequest(
			user.ID.String(),
			r.URL.Path,
			r.Method,
			rw.status,
			status,
			summary,
		)

		if err != nil {
			logger.Logger.WithFields(logrus.Fields{
				"error": err,
				"user":  user.ID,
				"path":  r.URL.Path,
			}).Error("Failed to log request")
		}
	})
}

func createRequestSummary(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, "/api")

	switch {
	case path == "/evaluate":
		return "Text deal evaluation"
	case path == "/evaluate-image":
		return "Screenshot deal evaluation"
	case strings.HasPrefix(path, "/evaluations/"):
		return "Evaluation lookup"
	case path == "/evaluations":
		return "Evaluation history listing"
	case path == "/usage":
		return "Usage stats lookup"
	case path == "/profile":
		return "Profile lookup"
	default:
		return "API request"
	}
}
