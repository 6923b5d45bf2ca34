package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
)

// ResidentAccounts registers and authenticates residents
type ResidentAccounts interface {
	Register(ctx context.Context, req models.RegisterUserRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error)
}

// AuthHandler handles resident registration, login and profile requests
type AuthHandler struct {
	users  ResidentAccounts
	audit  auditTrail
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users ResidentAccounts, auditor Auditor, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		audit:  auditTrail{auditor: auditor, logger: logger},
		logger: logger,
	}
}

// Register handles POST /api/users/register. New accounts wait for admin approval.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "All fields are required and email must be valid")
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. Please wait for admin approval.",
		"user":    user,
	})
}

// Login handles POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Username and password are required")
		return
	}

	resp, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			reason = "invalid_credentials"
		case errors.Is(err, services.ErrNotApproved):
			reason = "not_approved"
		}
		h.audit.safeLogLogin(c, "", req.Username, false, reason)
		respondError(c, h.logger, err)
		return
	}

	h.audit.safeLogLogin(c, resp.User.ID.String(), req.Username, true, "")
	c.JSON(http.StatusOK, resp)
}

// RefreshToken handles POST /api/users/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "refreshToken is required")
		return
	}

	resp, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProfile handles GET /api/users/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	user, err := h.users.GetProfile(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/users/profile. The flat number cannot be changed.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Invalid request body")
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	user, err := h.users.UpdateProfile(c.Request.Context(), userCtx.UserID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    user,
	})
}
