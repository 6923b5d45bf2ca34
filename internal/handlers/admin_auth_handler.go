package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
)

// AdminConsole authenticates the admin and decides registrations
type AdminConsole interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	ListPendingUsers(ctx context.Context) ([]models.User, error)
	DecideUser(ctx context.Context, userID uuid.UUID, action string) (*models.User, error)
}

// AdminAuthHandler handles admin console requests
type AdminAuthHandler struct {
	admin  AdminConsole
	audit  auditTrail
	logger *logrus.Logger
}

// NewAdminAuthHandler creates a new admin auth handler
func NewAdminAuthHandler(admin AdminConsole, auditor Auditor, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		admin:  admin,
		audit:  auditTrail{auditor: auditor, logger: logger},
		logger: logger,
	}
}

// Login handles POST /api/admin/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Username and password are required")
		return
	}

	resp, err := h.admin.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.audit.safeLogLogin(c, "", req.Username, false, "invalid_admin_credentials")
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogLogin(c, models.RoleAdmin, req.Username, true, "")
	c.JSON(http.StatusOK, resp)
}

// PendingUsers handles GET /api/admin/pending-users
func (h *AdminAuthHandler) PendingUsers(c *gin.Context) {
	users, err := h.admin.ListPendingUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// DecideUser handles POST /api/admin/approve-user with {userId, action: approve|decline}
func (h *AdminAuthHandler) DecideUser(c *gin.Context) {
	var req models.UserDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "userId and action (approve or decline) are required")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(c, "INVALID_ID", "Invalid user id")
		return
	}

	user, err := h.admin.DecideUser(c.Request.Context(), userID, req.Action)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogUserDecision(c, user.ID, string(user.Status))

	c.JSON(http.StatusOK, gin.H{
		"message": "User " + string(user.Status) + " successfully",
		"user":    user,
	})
}
