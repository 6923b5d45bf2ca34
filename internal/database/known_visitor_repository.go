package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarthive/community-backend/internal/models"
)

const knownVisitorColumns = `id, name, contact, email, visit_date, purpose, flat_number,
		created_by, status, verified_at, created_at`

// KnownVisitorRepository persists pre-registered visitor passes
type KnownVisitorRepository struct {
	db DB
}

// NewKnownVisitorRepository creates a new known visitor repository
func NewKnownVisitorRepository(db DB) *KnownVisitorRepository {
	return &KnownVisitorRepository{db: db}
}

// Create inserts a new visitor pass
func (r *KnownVisitorRepository) Create(ctx context.Context, v *models.KnownVisitor) error {
	query := `
		INSERT INTO known_visitors (
			id, name, contact, email, visit_date, purpose, flat_number, created_by, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.Name,
		v.Contact,
		v.Email,
		v.VisitDate,
		v.Purpose,
		v.FlatNumber,
		v.CreatedBy,
		v.Status,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create known visitor: %w", err)
	}

	return nil
}

// List returns visitor passes, optionally restricted to one flat, newest visit first
func (r *KnownVisitorRepository) List(ctx context.Context, flatNumber string) ([]models.KnownVisitor, error) {
	visitors := []models.KnownVisitor{}
	query := `
		SELECT ` + knownVisitorColumns + `
		FROM known_visitors
		WHERE ($1 = '' OR flat_number = $1)
		ORDER BY visit_date DESC
	`

	if err := r.db.SelectContext(ctx, &visitors, query, flatNumber); err != nil {
		return nil, fmt.Errorf("failed to list known visitors: %w", err)
	}

	return visitors, nil
}

// MarkApproved records a successful QR verification. Returns nil, nil for an unknown id.
// Re-verifying an approved pass refreshes verified_at.
func (r *KnownVisitorRepository) MarkApproved(ctx context.Context, id uuid.UUID, at time.Time) (*models.KnownVisitor, error) {
	var v models.KnownVisitor
	query := `
		UPDATE known_visitors
		SET status = 'Approved', verified_at = $2
		WHERE id = $1
		RETURNING ` + knownVisitorColumns

	if err := r.db.GetContext(ctx, &v, query, id, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to approve known visitor: %w", err)
	}

	return &v, nil
}
