package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/utils"
)

// Auditor records security-relevant events
type Auditor interface {
	LogLogin(ctx context.Context, actorID, username, ipAddress, userAgent string, success bool, reason string) error
	LogBooking(ctx context.Context, userID, bookingID uuid.UUID, amenity, flatNumber string, start, end time.Time, ipAddress, userAgent string) error
	LogVisitorDecision(ctx context.Context, actorID string, visitorID uuid.UUID, status, ipAddress, userAgent string) error
	LogUserDecision(ctx context.Context, userID uuid.UUID, status, ipAddress, userAgent string) error
}

// auditTrail writes audit events without ever failing the request.
// A nil auditor disables it.
type auditTrail struct {
	auditor Auditor
	logger  *logrus.Logger
}

func logAuditError(logger *logrus.Logger, operation string, err error) {
	if err != nil {
		logger.WithError(err).WithField("operation", operation).Warn("AUDIT ERROR")
	}
}

func (a auditTrail) safeLogLogin(c *gin.Context, actorID, username string, success bool, reason string) {
	if a.auditor == nil {
		return
	}
	err := a.auditor.LogLogin(c.Request.Context(), actorID, username, utils.GetRealIP(c), utils.GetUserAgent(c), success, reason)
	logAuditError(a.logger, "LogLogin", err)
}

func (a auditTrail) safeLogBooking(c *gin.Context, userID, bookingID uuid.UUID, amenity, flatNumber string, start, end time.Time) {
	if a.auditor == nil {
		return
	}
	err := a.auditor.LogBooking(c.Request.Context(), userID, bookingID, amenity, flatNumber, start, end, utils.GetRealIP(c), utils.GetUserAgent(c))
	logAuditError(a.logger, "LogBooking", err)
}

func (a auditTrail) safeLogVisitorDecision(c *gin.Context, actorID string, visitorID uuid.UUID, status string) {
	if a.auditor == nil {
		return
	}
	err := a.auditor.LogVisitorDecision(c.Request.Context(), actorID, visitorID, status, utils.GetRealIP(c), utils.GetUserAgent(c))
	logAuditError(a.logger, "LogVisitorDecision", err)
}

func (a auditTrail) safeLogUserDecision(c *gin.Context, userID uuid.UUID, status string) {
	if a.auditor == nil {
		return
	}
	err := a.auditor.LogUserDecision(c.Request.Context(), userID, status, utils.GetRealIP(c), utils.GetUserAgent(c))
	logAuditError(a.logger, "LogUserDecision", err)
}
