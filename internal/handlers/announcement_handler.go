package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
)

// Noticeboard publishes announcements
type Noticeboard interface {
	Create(ctx context.Context, title, details string) (*models.Announcement, error)
	List(ctx context.Context) ([]models.Announcement, error)
}

// AnnouncementHandler handles announcement requests
type AnnouncementHandler struct {
	announcements Noticeboard
	logger        *logrus.Logger
}

// NewAnnouncementHandler creates a new announcement handler
func NewAnnouncementHandler(announcements Noticeboard, logger *logrus.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, logger: logger}
}

// Create handles POST /api/announcements/create
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req models.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Title and details are required")
		return
	}

	a, err := h.announcements.Create(c.Request.Context(), req.Title, req.Details)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Announcement created successfully",
		"announcement": a,
	})
}

// List handles GET /api/announcements. No announcements is an empty list, not an error.
func (h *AnnouncementHandler) List(c *gin.Context) {
	announcements, err := h.announcements.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if announcements == nil {
		announcements = []models.Announcement{}
	}
	c.JSON(http.StatusOK, announcements)
}
