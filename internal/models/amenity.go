package models

import (
	"time"

	"github.com/google/uuid"
)

// Amenity is a shared community facility that can be booked
type Amenity struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"amenity" db:"name"`
	NameKey     string    `json:"-" db:"name_key"`
	IsAvailable bool      `json:"availability" db:"is_available"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	Bookings    []Booking `json:"bookings" db:"-"`
}

// Booking reserves an amenity for a half-open interval [StartAt, EndAt)
type Booking struct {
	ID         uuid.UUID `json:"id" db:"id"`
	AmenityID  uuid.UUID `json:"amenityId" db:"amenity_id"`
	UserID     uuid.UUID `json:"userId" db:"user_id"`
	FlatNumber string    `json:"flatNumber" db:"flat_number"`
	StartAt    time.Time `json:"bookingSlot" db:"start_at"`
	EndAt      time.Time `json:"endSlot" db:"end_at"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// Overlaps reports whether the booking intersects [start, end).
// Touching intervals (one ends exactly when the other starts) do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && b.EndAt.After(start)
}

// BookAmenityRequest is the body of POST /amenities/book
type BookAmenityRequest struct {
	Amenity     string `json:"amenity"`
	BookingSlot string `json:"bookingSlot"`
	EndSlot     string `json:"endSlot"`
	UserID      string `json:"userId"`
	// FlatNumber is accepted for compatibility and ignored; the user's own flat is used
	FlatNumber string `json:"flatNumber,omitempty"`
}

// BookAmenityResponse is returned after a successful booking
type BookAmenityResponse struct {
	Message    string   `json:"message"`
	FlatNumber string   `json:"flatNumber"`
	Booking    *Booking `json:"booking"`
}
