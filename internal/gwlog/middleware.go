package gwlog

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const skipLogKey = "__gwlog_skip_request_logging__"

// RequestID returns the request id propagated (or generated) for c,
// mirroring the X-Request-Id header set on the response.
func RequestID(c *gin.Context) string {
	id := c.Request.Header.Get("X-Request-Id")
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	return id
}

// GinMiddleware logs every request's method, path, status, latency, and
// client IP through logger, attaching a request id to both the response
// header and the log fields so upstream error bodies can be correlated
// with the request that produced them.
func GinMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		requestID := RequestID(c)
		c.Writer.Header().Set("X-Request-Id", requestID)
		c.Set("request_id", requestID)

		c.Next()

		if skipped(c) {
			return
		}

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		fields := logrus.Fields{
			"status":     statusCode,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"request_id": requestID,
		}
		if errorMessage != "" {
			fields["error"] = errorMessage
		}

		entry := logger.WithFields(fields)
		switch {
		case statusCode >= http.StatusInternalServerError:
			entry.Error("request")
		case statusCode >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// GinRecovery recovers panics inside handlers, logs the stack trace, and
// responds 500 rather than crashing the process.
func GinRecovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"panic": recovered,
			"stack": string(debug.Stack()),
			"path":  c.Request.URL.Path,
		}).Error("recovered from panic")
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// SkipLogging marks c so GinMiddleware omits its request line, used for
// the health-check probe's noise.
func SkipLogging(c *gin.Context) {
	c.Set(skipLogKey, true)
}

func skipped(c *gin.Context) bool {
	v, ok := c.Get(skipLogKey)
	if !ok {
		return false
	}
	flag, _ := v.(bool)
	return flag
}
