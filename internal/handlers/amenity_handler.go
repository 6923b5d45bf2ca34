package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
)

// AmenityBooker books amenities and lists their bookings
type AmenityBooker interface {
	BookAmenity(ctx context.Context, in services.BookAmenityInput) (*services.BookingResult, error)
	ListAmenities(ctx context.Context) ([]models.Amenity, error)
}

// AmenityHandler handles amenity booking requests
type AmenityHandler struct {
	bookings AmenityBooker
	audit    auditTrail
	logger   *logrus.Logger
}

// NewAmenityHandler creates a new amenity handler
func NewAmenityHandler(bookings AmenityBooker, auditor Auditor, logger *logrus.Logger) *AmenityHandler {
	return &AmenityHandler{
		bookings: bookings,
		audit:    auditTrail{auditor: auditor, logger: logger},
		logger:   logger,
	}
}

// BookAmenity handles POST /api/amenities/book.
// userId may be omitted; when present it must be the caller's own id.
func (h *AmenityHandler) BookAmenity(c *gin.Context) {
	var req models.BookAmenityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_BODY", "Invalid request body")
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	caller := userCtx.UserID.String()
	if req.UserID == "" {
		req.UserID = caller
	} else if req.UserID != caller {
		respondError(c, h.logger, services.ErrForbidden)
		return
	}

	result, err := h.bookings.BookAmenity(c.Request.Context(), services.BookAmenityInput{
		Amenity:     req.Amenity,
		BookingSlot: req.BookingSlot,
		EndSlot:     req.EndSlot,
		UserID:      req.UserID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	b := result.Booking
	h.audit.safeLogBooking(c, b.UserID, b.ID, result.Amenity, result.FlatNumber, b.StartAt, b.EndAt)

	c.JSON(http.StatusOK, models.BookAmenityResponse{
		Message:    result.Message,
		FlatNumber: result.FlatNumber,
		Booking:    result.Booking,
	})
}

// ListAmenities handles GET /api/amenities
func (h *AmenityHandler) ListAmenities(c *gin.Context) {
	amenities, err := h.bookings.ListAmenities(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if amenities == nil {
		amenities = []models.Amenity{}
	}
	c.JSON(http.StatusOK, amenities)
}
