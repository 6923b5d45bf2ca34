package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/services"
	"github.com/smarthive/community-backend/pkg/upload"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error              string `json:"error"`
	Message            string `json:"message"`
	Code               string `json:"code,omitempty"`
	Field              string `json:"field,omitempty"`
	ConflictingAmenity string `json:"conflictingAmenity,omitempty"`
}

// respondError maps a service error onto a status and an ErrorResponse.
// Anything unrecognised is logged and reported as a 500 without details.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, resp := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

func classifyError(err error) (int, ErrorResponse) {
	var conflict *services.BookingConflictError
	if errors.As(err, &conflict) {
		return http.StatusBadRequest, ErrorResponse{
			Error:              "booking_conflict",
			Message:            conflict.Error(),
			Code:               "BOOKING_CONFLICT",
			ConflictingAmenity: conflict.Amenity,
		}
	}

	var field string
	var fe *services.FieldError
	if errors.As(err, &fe) {
		field = fe.Field
	}

	switch {
	case errors.Is(err, services.ErrMissingField):
		msg := "All fields are required"
		if field != "" {
			msg = fmt.Sprintf("%s is required", field)
		}
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: msg, Code: "MISSING_FIELD", Field: field}

	case errors.Is(err, services.ErrInvalidFormat):
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: invalidFormatMessage(field), Code: "INVALID_FORMAT", Field: field}

	case errors.Is(err, services.ErrInvalidRange):
		msg := "End time must be after start time"
		if field == "preferredDate" {
			msg = "Preferred date cannot be in the past"
		}
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: msg, Code: "INVALID_RANGE", Field: field}

	case errors.Is(err, services.ErrMissingImage):
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Image is required", Code: "MISSING_IMAGE", Field: "image"}

	case errors.Is(err, upload.ErrNotImage):
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Only image uploads are accepted", Code: "INVALID_IMAGE", Field: field}

	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: "validation_error", Message: "Image is too large", Code: "IMAGE_TOO_LARGE", Field: field}

	case errors.Is(err, services.ErrInvalidFlat):
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Flat number does not exist", Code: "INVALID_FLAT", Field: field}

	case errors.Is(err, services.ErrInvalidQRCode):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_qr_code", Message: "Invalid QR code", Code: "INVALID_QR_CODE"}

	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: "invalid_credentials", Message: "Invalid credentials", Code: "INVALID_CREDENTIALS"}

	case errors.Is(err, services.ErrNotApproved):
		return http.StatusForbidden, ErrorResponse{Error: "not_approved", Message: "Your account is not approved yet", Code: "NOT_APPROVED"}

	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "You can only act on your own account", Code: "FORBIDDEN"}

	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "User not found", Code: "USER_NOT_FOUND"}

	case errors.Is(err, services.ErrAmenityNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Amenity not found", Code: "AMENITY_NOT_FOUND"}

	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Request not found", Code: "NOT_FOUND"}

	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, ErrorResponse{Error: "invalid_transition", Message: "This request has already been decided", Code: "ALREADY_DECIDED"}

	case errors.Is(err, services.ErrDuplicate):
		return http.StatusConflict, ErrorResponse{Error: "duplicate", Message: "Username or email already registered", Code: "DUPLICATE"}

	case errors.Is(err, services.ErrDuplicateRequest):
		return http.StatusConflict, ErrorResponse{Error: "duplicate_request", Message: "Duplicate request detected. Please wait before submitting again.", Code: "DUPLICATE_REQUEST"}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Something went wrong. Please try again later.", Code: "INTERNAL_ERROR"}
}

func invalidFormatMessage(field string) string {
	switch field {
	case "bookingSlot", "endSlot", "visitDate", "preferredDate":
		return fmt.Sprintf("Invalid date format for %s", field)
	case "title":
		return "Title must be at least 3 characters"
	case "description":
		return "Description must be at least 5 characters"
	case "":
		return "Invalid input"
	}
	return fmt.Sprintf("Invalid %s", field)
}

// badRequest answers a malformed body or path parameter
func badRequest(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Code:    code,
	})
}
