package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
)

// FlatLister lists the community's flats
type FlatLister interface {
	List(ctx context.Context) ([]models.Flat, error)
}

// FlatHandler serves the flat directory used by the registration form
type FlatHandler struct {
	flats  FlatLister
	logger *logrus.Logger
}

// NewFlatHandler creates a new flat handler
func NewFlatHandler(flats FlatLister, logger *logrus.Logger) *FlatHandler {
	return &FlatHandler{flats: flats, logger: logger}
}

// List handles GET /api/flats
func (h *FlatHandler) List(c *gin.Context) {
	flats, err := h.flats.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, flats)
}
