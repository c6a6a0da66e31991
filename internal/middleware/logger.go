package middleware

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raflianugrah/invoice-manager-service/internal/logger"
)

// sensitiveHeaderPatterns matches headers that must never reach the logs
var sensitiveHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)authorization`),
	regexp.MustCompile(`(?i)api[-_]?key`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)cookie`),
	regexp.MustCompile(`(?i)session`),
}

func isSensitiveHeader(name string) bool {
	for _, pattern := range sensitiveHeaderPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// RequestLogger logs every request with method, path, status, latency,
// and the authenticated user when present. Sensitive headers are
// redacted before logging.
func RequestLogger() gin.HandlerFunc {
	log := logger.WithComponent("http")

	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)

		headers := map[string]string{}
		for name, values := range c.Request.Header {
			if isSensitiveHeader(name) {
				headers[name] = "[REDACTED]"
				continue
			}
			if len(values) > 0 {
				headers[name] = values[0]
			}
		}

		event := log.Info()
		if c.Writer.Status() >= 500 {
			event = log.Error()
		} else if c.Writer.Status() >= 400 {
			event = log.Warn()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Interface("headers", headers)

		if userID := c.GetString("userID"); userID != "" {
			event = event.Str("user_id", userID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.Msg("request handled")
	}
}
