package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/services"
	"github.com/smarthive/community-backend/internal/utils"
)

// SubmissionLimiter counts unauthenticated submissions per client IP
type SubmissionLimiter interface {
	CheckSubmission(ctx context.Context, ip string) error
	RecordSubmission(ctx context.Context, ip string) error
}

// ViolationRecorder keeps an audit trail of rejected submissions
type ViolationRecorder interface {
	LogRateLimitViolation(ctx context.Context, ipAddress, userAgent, limitType string, retryAfter time.Time) error
}

// SubmissionRateLimit rejects a client IP that exceeded its submission window with 429.
// Only submissions the handler accepted are counted.
func SubmissionRateLimit(limiter SubmissionLimiter, audit ViolationRecorder, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := utils.GetRealIP(c)
		ctx := c.Request.Context()

		if err := limiter.CheckSubmission(ctx, clientIP); err != nil {
			var rateLimitErr *services.RateLimitError
			if errors.As(err, &rateLimitErr) {
				if auditErr := audit.LogRateLimitViolation(ctx, clientIP, utils.GetUserAgent(c), rateLimitErr.Type, rateLimitErr.RetryAfter); auditErr != nil {
					logger.WithError(auditErr).Warn("AUDIT ERROR [LogRateLimitViolation]")
				}
				c.Header("Retry-After", rateLimitErr.RetryAfter.UTC().Format(http.TimeFormat))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error":       "rate_limit_exceeded",
					"message":     rateLimitErr.Message,
					"retry_after": rateLimitErr.RetryAfter,
					"type":        rateLimitErr.Type,
				})
				return
			}

			// A broken limiter must not lock residents' visitors out at the gate
			logger.WithError(err).Error("Failed to check submission rate limit")
		}

		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			if err := limiter.RecordSubmission(context.WithoutCancel(ctx), clientIP); err != nil {
				logger.WithError(err).Warn("Failed to record submission for rate limiting")
			}
		}
	}
}
