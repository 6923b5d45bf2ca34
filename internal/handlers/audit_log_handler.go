package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
)

// AuditReader lists recorded audit events
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// AuditLogHandler exposes the audit trail to the admin console
type AuditLogHandler struct {
	reader AuditReader
	logger *logrus.Logger
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(reader AuditReader, logger *logrus.Logger) *AuditLogHandler {
	return &AuditLogHandler{reader: reader, logger: logger}
}

// List handles GET /api/admin/audit-logs?limit=
func (h *AuditLogHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "INVALID_LIMIT", "limit must be a number")
			return
		}
		limit = n
	}

	logs, err := h.reader.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
