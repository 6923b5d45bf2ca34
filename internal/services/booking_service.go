package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/database"
	"github.com/smarthive/community-backend/internal/metrics"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/realtime"
)

// EventAmenityBooked is broadcast after a booking commits
const EventAmenityBooked = "amenityBooked"

// UserLookup resolves users by id
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AmenityStore is the interval store backing amenity bookings
type AmenityStore interface {
	GetAmenityByName(ctx context.Context, name string) (*models.Amenity, error)
	FindConflict(ctx context.Context, amenityID uuid.UUID, start, end time.Time) (*models.Booking, error)
	CommitBooking(ctx context.Context, booking *models.Booking) error
	ListAmenitiesWithBookings(ctx context.Context) ([]models.Amenity, error)
}

// TaskRunner runs side effects after the request that caused them has committed
type TaskRunner interface {
	Go(kind string, run func(ctx context.Context) error)
}

// BookAmenityInput is a validated-on-entry booking request
type BookAmenityInput struct {
	Amenity     string
	BookingSlot string
	EndSlot     string
	UserID      string
}

// BookingResult is returned for a committed booking
type BookingResult struct {
	Message    string
	Amenity    string
	FlatNumber string
	Booking    *models.Booking
}

// AmenityBookedEvent is the payload of EventAmenityBooked
type AmenityBookedEvent struct {
	Amenity     string    `json:"amenity"`
	FlatNumber  string    `json:"flatNumber"`
	BookingSlot time.Time `json:"bookingSlot"`
	EndSlot     time.Time `json:"endSlot"`
}

// BookingService books amenities without ever admitting two overlapping bookings
type BookingService struct {
	users       UserLookup
	amenities   AmenityStore
	tasks       TaskRunner
	broadcaster realtime.Broadcaster
	location    *time.Location
	lockTimeout time.Duration
	logger      *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	users UserLookup,
	amenities AmenityStore,
	tasks TaskRunner,
	broadcaster realtime.Broadcaster,
	location *time.Location,
	lockTimeout time.Duration,
	logger *logrus.Logger,
) *BookingService {
	if location == nil {
		location = time.UTC
	}
	return &BookingService{
		users:       users,
		amenities:   amenities,
		tasks:       tasks,
		broadcaster: broadcaster,
		location:    location,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// BookAmenity validates the request, resolves user and amenity, and commits the booking
// under the amenity's lock. The flat number always comes from the user record.
func (s *BookingService) BookAmenity(ctx context.Context, in BookAmenityInput) (*BookingResult, error) {
	start, end, err := ValidateBookingRequest(in.Amenity, in.BookingSlot, in.EndSlot, in.UserID, s.location)
	if err != nil {
		metrics.IncBookingAttempt("unresolved", "invalid")
		return nil, err
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		metrics.IncBookingAttempt("unresolved", "unknown_user")
		return nil, ErrUserNotFound
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storageErr("failed to load user", err)
	}
	if user == nil {
		metrics.IncBookingAttempt("unresolved", "unknown_user")
		return nil, ErrUserNotFound
	}
	if !user.IsApproved() {
		metrics.IncBookingAttempt("unresolved", "not_approved")
		return nil, ErrNotApproved
	}

	amenity, err := s.amenities.GetAmenityByName(ctx, in.Amenity)
	if err != nil {
		return nil, storageErr("failed to load amenity", err)
	}
	if amenity == nil {
		metrics.IncBookingAttempt("unresolved", "unknown_amenity")
		return nil, ErrAmenityNotFound
	}

	// Early reject so the common conflict never takes the row lock
	existing, err := s.amenities.FindConflict(ctx, amenity.ID, start, end)
	if err != nil {
		return nil, storageErr("failed to check booking conflicts", err)
	}
	if existing != nil {
		metrics.IncBookingAttempt(amenity.Name, "conflict")
		return nil, &BookingConflictError{Amenity: amenity.Name, Existing: existing}
	}

	booking := &models.Booking{
		AmenityID:  amenity.ID,
		UserID:     user.ID,
		FlatNumber: user.FlatNumber,
		StartAt:    start.UTC(),
		EndAt:      end.UTC(),
	}

	commitCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	if err := s.amenities.CommitBooking(commitCtx, booking); err != nil {
		var overlap *database.OverlapError
		switch {
		case errors.As(err, &overlap):
			metrics.IncBookingAttempt(amenity.Name, "conflict")
			return nil, &BookingConflictError{Amenity: amenity.Name, Existing: overlap.Existing}
		case errors.Is(err, database.ErrBookingOverlap):
			metrics.IncBookingAttempt(amenity.Name, "conflict")
			return nil, &BookingConflictError{Amenity: amenity.Name}
		case errors.Is(err, database.ErrAmenityMissing):
			return nil, ErrAmenityNotFound
		}
		metrics.IncBookingAttempt(amenity.Name, "error")
		return nil, storageErr("failed to commit booking", err)
	}

	metrics.IncBookingAttempt(amenity.Name, "booked")
	s.logger.WithFields(logrus.Fields{
		"amenity":     amenity.Name,
		"flat_number": user.FlatNumber,
		"booking_id":  booking.ID,
		"start":       booking.StartAt,
		"end":         booking.EndAt,
	}).Info("Amenity booked")

	event := AmenityBookedEvent{
		Amenity:     amenity.Name,
		FlatNumber:  booking.FlatNumber,
		BookingSlot: booking.StartAt,
		EndSlot:     booking.EndAt,
	}
	s.tasks.Go("broadcast."+EventAmenityBooked, func(ctx context.Context) error {
		return s.broadcaster.Broadcast(EventAmenityBooked, event)
	})

	return &BookingResult{
		Message:    fmt.Sprintf("Amenity booked successfully for Flat %s", user.FlatNumber),
		Amenity:    amenity.Name,
		FlatNumber: user.FlatNumber,
		Booking:    booking,
	}, nil
}

// ListAmenities returns every amenity with its bookings embedded
func (s *BookingService) ListAmenities(ctx context.Context) ([]models.Amenity, error) {
	amenities, err := s.amenities.ListAmenitiesWithBookings(ctx)
	if err != nil {
		return nil, storageErr("failed to list amenities", err)
	}
	return amenities, nil
}
