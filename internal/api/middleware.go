package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logEventAPIRequest = "api_request"

	logFieldHTTPMethod   = "http_method"
	logFieldRoutePattern = "route_pattern"
	logFieldRequestPath  = "request_path"
	logFieldStatusCode   = "status_code"
	logFieldLatency      = "latency"
	logFieldClientIP     = "client_ip"
	logFieldOwnerID      = "owner_id"
)

// RequestLogger records one entry per request with the matched route and, once authenticated,
// the owner whose listings were touched. Responses of 500 and above are logged at warn level.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(context *gin.Context) {
		startedAt := time.Now()
		context.Next()

		statusCode := context.Writer.Status()
		level := zapcore.InfoLevel
		if statusCode >= http.StatusInternalServerError {
			level = zapcore.WarnLevel
		}
		entry := logger.Check(level, logEventAPIRequest)
		if entry == nil {
			return
		}
		fields := []zap.Field{
			zap.String(logFieldHTTPMethod, context.Request.Method),
			zap.String(logFieldRoutePattern, context.FullPath()),
			zap.String(logFieldRequestPath, context.Request.URL.Path),
			zap.Int(logFieldStatusCode, statusCode),
			zap.Duration(logFieldLatency, time.Since(startedAt)),
			zap.String(logFieldClientIP, context.ClientIP()),
		}
		if currentUser, found := CurrentUserFromContext(context); found {
			fields = append(fields, zap.String(logFieldOwnerID, currentUser.OwnerID()))
		}
		entry.Write(fields...)
	}
}
