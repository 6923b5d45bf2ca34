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

const visitorRequestColumns = `id, name, purpose, flat_number, image_url, status, request_time, decided_at`

// UnknownVisitorRepository persists visitor requests awaiting a resident's decision
type UnknownVisitorRepository struct {
	db DB
}

// NewUnknownVisitorRepository creates a new unknown visitor repository
func NewUnknownVisitorRepository(db DB) *UnknownVisitorRepository {
	return &UnknownVisitorRepository{db: db}
}

// Create inserts a new request
func (r *UnknownVisitorRepository) Create(ctx context.Context, v *models.VisitorRequest) error {
	query := `
		INSERT INTO unknown_visitors (id, name, purpose, flat_number, image_url, status, request_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.Name,
		v.Purpose,
		v.FlatNumber,
		v.ImageURL,
		v.Status,
		v.RequestTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create visitor request: %w", err)
	}

	return nil
}

// GetByID returns a request, or nil, nil when it does not exist
func (r *UnknownVisitorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error) {
	var v models.VisitorRequest
	query := `SELECT ` + visitorRequestColumns + ` FROM unknown_visitors WHERE id = $1`

	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get visitor request: %w", err)
	}

	return &v, nil
}

// ListPendingByFlat returns Pending requests addressed to a flat, newest first
func (r *UnknownVisitorRepository) ListPendingByFlat(ctx context.Context, flatNumber string) ([]models.VisitorRequest, error) {
	requests := []models.VisitorRequest{}
	query := `
		SELECT ` + visitorRequestColumns + `
		FROM unknown_visitors
		WHERE flat_number = $1 AND status = 'Pending'
		ORDER BY request_time DESC
	`

	if err := r.db.SelectContext(ctx, &requests, query, flatNumber); err != nil {
		return nil, fmt.Errorf("failed to list pending visitor requests: %w", err)
	}

	return requests, nil
}

// ListHistory returns every request, newest first
func (r *UnknownVisitorRepository) ListHistory(ctx context.Context) ([]models.VisitorRequest, error) {
	requests := []models.VisitorRequest{}
	query := `SELECT ` + visitorRequestColumns + ` FROM unknown_visitors ORDER BY request_time DESC`

	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("failed to list visitor history: %w", err)
	}

	return requests, nil
}

// DecidePending atomically moves a Pending request to status. It returns nil, nil when
// the request is missing or no longer Pending; callers re-read to tell those apart.
func (r *UnknownVisitorRepository) DecidePending(ctx context.Context, id uuid.UUID, status models.VisitorStatus, decidedAt time.Time) (*models.VisitorRequest, error) {
	var v models.VisitorRequest
	query := `
		UPDATE unknown_visitors
		SET status = $2, decided_at = $3
		WHERE id = $1 AND status = 'Pending'
		RETURNING ` + visitorRequestColumns

	if err := r.db.GetContext(ctx, &v, query, id, status, decidedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update visitor request: %w", err)
	}

	return &v, nil
}
