package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"imgferry/internal/logging"
	"imgferry/internal/services"
)

const (
	headerRequestID = "X-Request-ID"
	headerAuthorID  = "X-Author-ID"
)

// requestContext tags the request with a correlation id and the acting
// author so downstream logs carry both.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		ctx := services.WithRequestID(c.Request.Context(), id)
		if author := strings.TrimSpace(c.GetHeader(headerAuthorID)); author != "" {
			ctx = services.WithUploader(ctx, author)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
		}
		log := logging.WithContext(c.Request.Context(), logger)
		switch {
		case status >= http.StatusInternalServerError:
			logging.ErrorWithContext(log, "request failed", "http_request_failed", attrs...)
		case status >= http.StatusBadRequest:
			log.Info("request rejected", logging.Args(attrs...)...)
		default:
			log.Debug("request served", logging.Args(attrs...)...)
		}
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.ErrorWithContext(logging.WithContext(c.Request.Context(), logger), "handler panicked", "http_handler_panic",
			logging.Any("panic", recovered),
			logging.String(logging.FieldErrorHint, "report the request id with the failing input"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{Success: false, Error: "internal server error"})
	})
}

// requireToken validates bearer tokens. An empty token disables the check.
func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Success: false, Error: "unauthorized"})
			return
		}
		presented := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Success: false, Error: "unauthorized"})
			return
		}
		c.Next()
	}
}
