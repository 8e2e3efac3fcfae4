package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/badgegraph/internal/auth"
)

// RequestObserver records per-request metrics.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

// LoggerMiddleware logs method, path, status, duration and client IP once
// per request. Health and metrics probes are logged at Debug.
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
			logger.Error("HTTP request with errors", attrs...)
			return
		}

		if path == "/health" || path == "/metrics" {
			logger.Debug("HTTP request", attrs...)
			return
		}
		logger.Info("HTTP request", attrs...)
	}
}

// RecoveryMiddleware turns a handler panic into an empty 500.
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// MetricsMiddleware reports every request to obs, labelled by route pattern.
func MetricsMiddleware(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		obs.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// digestKey is the gin context key holding the caller's key digest.
const digestKey = "badgegraph.key_digest"

// RequireWorker rejects requests that do not carry an issued API key.
func RequireWorker(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		ok, err := a.ValidKey(c.Request.Context(), header)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(digestKey, auth.Digest(auth.Token(header)))
		c.Next()
	}
}

// RequireAdmin rejects requests that do not carry the admin key.
func RequireAdmin(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.ValidAdmin(c.GetHeader("Authorization")) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware throttles each worker key independently. It must run
// after RequireWorker.
func RateLimitMiddleware(limiter *keyLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetString(digestKey))
		if key != "" && !limiter.Allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
