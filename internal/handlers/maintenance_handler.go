package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
)

// MaintenanceDesk tracks repair requests
type MaintenanceDesk interface {
	Submit(ctx context.Context, in services.SubmitMaintenanceInput) (*models.MaintenanceRequest, error)
	List(ctx context.Context) ([]models.MaintenanceRequest, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.MaintenanceRequest, error)
}

// MaintenanceHandler handles maintenance requests
type MaintenanceHandler struct {
	requests MaintenanceDesk
	logger   *logrus.Logger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(requests MaintenanceDesk, logger *logrus.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{requests: requests, logger: logger}
}

// Submit handles POST /api/requests (multipart: title, description, preferredDate, optional issueImage)
func (h *MaintenanceHandler) Submit(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	image, closeImage, err := formImage(c, "issueImage")
	if err != nil {
		badRequest(c, "INVALID_UPLOAD", "Could not read uploaded image")
		return
	}
	defer closeImage()

	m, err := h.requests.Submit(c.Request.Context(), services.SubmitMaintenanceInput{
		UserID:        userCtx.UserID,
		Title:         c.PostForm("title"),
		Description:   c.PostForm("description"),
		PreferredDate: c.PostForm("preferredDate"),
		Image:         image,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Maintenance request submitted successfully",
		"request": m,
	})
}

// List handles GET /api/requests (admin)
func (h *MaintenanceHandler) List(c *gin.Context) {
	requests, err := h.requests.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListMine handles GET /api/requests/mine
func (h *MaintenanceHandler) ListMine(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	requests, err := h.requests.ListMine(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// UpdateStatus handles PATCH /api/requests/:id/status (admin)
func (h *MaintenanceHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "INVALID_ID", "Invalid request id")
		return
	}

	var req models.UpdateMaintenanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "status is required")
		return
	}

	m, err := h.requests.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Status updated",
		"request": m,
	})
}
