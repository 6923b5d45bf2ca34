package services

import (
	"errors"
	"fmt"

	"github.com/smarthive/community-backend/internal/models"
)

var (
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidFormat     = errors.New("invalid format")
	ErrInvalidRange      = errors.New("value out of range")
	ErrUserNotFound      = errors.New("user not found")
	ErrAmenityNotFound   = errors.New("amenity not found")
	ErrBookingConflict   = errors.New("time slot already booked")
	ErrMissingImage      = errors.New("visitor image is required")
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("request has already been decided")
	ErrStorage           = errors.New("storage failure")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotApproved        = errors.New("account is not approved")
	ErrDuplicate          = errors.New("record already exists")
	ErrInvalidFlat        = errors.New("flat number does not exist")
	ErrInvalidQRCode      = errors.New("invalid QR code")
	ErrForbidden          = errors.New("operation not permitted")
	ErrDuplicateRequest   = errors.New("duplicate request")
)

// BookingConflictError reports the amenity whose slot is taken and, when known, the booking holding it
type BookingConflictError struct {
	Amenity  string
	Existing *models.Booking
}

func (e *BookingConflictError) Error() string {
	return fmt.Sprintf("This time slot for %s is already booked!", e.Amenity)
}

func (e *BookingConflictError) Unwrap() error {
	return ErrBookingConflict
}

// FieldError names the input that failed validation
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

// storageErr wraps a repository failure so handlers map it to 500 without leaking details
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
