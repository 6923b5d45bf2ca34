package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smarthive/community-backend/internal/models"
)

// ErrBookingOverlap is returned when a booking would intersect an existing one
var ErrBookingOverlap = errors.New("booking overlaps an existing booking")

// ErrAmenityMissing is returned when the amenity row to lock does not exist
var ErrAmenityMissing = errors.New("amenity does not exist")

// OverlapError carries the booking that blocked a commit
type OverlapError struct {
	Existing *models.Booking
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("booking overlaps %s..%s", e.Existing.StartAt.Format(time.RFC3339), e.Existing.EndAt.Format(time.RFC3339))
}

func (e *OverlapError) Unwrap() error {
	return ErrBookingOverlap
}

const bookingColumns = `id, amenity_id, user_id, flat_number, start_at, end_at, created_at`

// overlapQuery matches half-open intervals: touching endpoints do not overlap
const overlapQuery = `
	SELECT ` + bookingColumns + `
	FROM amenity_bookings
	WHERE amenity_id = $1 AND start_at < $3 AND end_at > $2
	ORDER BY start_at
	LIMIT 1
`

type getter interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// AmenityRepository is the interval store for amenity bookings
type AmenityRepository struct {
	db DB
}

// NewAmenityRepository creates a new amenity repository
func NewAmenityRepository(db DB) *AmenityRepository {
	return &AmenityRepository{db: db}
}

// NormalizeAmenityName produces the lookup key stored in amenities.name_key
func NormalizeAmenityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetAmenityByName finds an amenity case-insensitively. Returns nil, nil when absent.
func (r *AmenityRepository) GetAmenityByName(ctx context.Context, name string) (*models.Amenity, error) {
	var amenity models.Amenity
	query := `SELECT id, name, name_key, is_available, created_at FROM amenities WHERE name_key = $1`

	if err := r.db.GetContext(ctx, &amenity, query, NormalizeAmenityName(name)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get amenity by name: %w", err)
	}

	return &amenity, nil
}

// FindConflict returns the earliest booking of the amenity overlapping [start, end), or nil
func (r *AmenityRepository) FindConflict(ctx context.Context, amenityID uuid.UUID, start, end time.Time) (*models.Booking, error) {
	return findConflict(ctx, r.db, amenityID, start, end)
}

func findConflict(ctx context.Context, q getter, amenityID uuid.UUID, start, end time.Time) (*models.Booking, error) {
	var booking models.Booking
	if err := q.GetContext(ctx, &booking, overlapQuery, amenityID, start, end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	return &booking, nil
}

// CommitBooking inserts a booking if it does not overlap any existing booking of the
// same amenity. The amenity row is locked for the duration of the check and insert, so
// concurrent commits for one amenity are serialized. An overlap yields an *OverlapError
// (or ErrBookingOverlap if only the exclusion constraint caught it) and nothing is written.
func (r *AmenityRepository) CommitBooking(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID uuid.UUID
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM amenities WHERE id = $1 FOR UPDATE`, booking.AmenityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAmenityMissing
		}
		return fmt.Errorf("failed to lock amenity: %w", err)
	}

	existing, err := findConflict(ctx, tx, booking.AmenityID, booking.StartAt, booking.EndAt)
	if err != nil {
		return err
	}
	if existing != nil {
		return &OverlapError{Existing: existing}
	}

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	query := `
		INSERT INTO amenity_bookings (id, amenity_id, user_id, flat_number, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err = tx.GetContext(ctx, &booking.CreatedAt, query,
		booking.ID,
		booking.AmenityID,
		booking.UserID,
		booking.FlatNumber,
		booking.StartAt,
		booking.EndAt,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrBookingOverlap
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	return nil
}

// ListAmenitiesWithBookings returns every amenity with its bookings in start order
func (r *AmenityRepository) ListAmenitiesWithBookings(ctx context.Context) ([]models.Amenity, error) {
	amenities := []models.Amenity{}
	if err := r.db.SelectContext(ctx, &amenities,
		`SELECT id, name, name_key, is_available, created_at FROM amenities ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list amenities: %w", err)
	}

	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings,
		`SELECT `+bookingColumns+` FROM amenity_bookings ORDER BY amenity_id, start_at`); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	byAmenity := make(map[uuid.UUID][]models.Booking, len(amenities))
	for _, b := range bookings {
		byAmenity[b.AmenityID] = append(byAmenity[b.AmenityID], b)
	}
	for i := range amenities {
		amenities[i].Bookings = byAmenity[amenities[i].ID]
		if amenities[i].Bookings == nil {
			amenities[i].Bookings = []models.Booking{}
		}
	}

	return amenities, nil
}

// PurgeBookingsBefore deletes bookings that ended before cutoff
func (r *AmenityRepository) PurgeBookingsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM amenity_bookings WHERE end_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge bookings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}
