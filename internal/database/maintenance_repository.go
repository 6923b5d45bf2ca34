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

const maintenanceColumns = `id, user_id, flat_number, title, description, preferred_date,
		image_url, status, created_at, updated_at`

// MaintenanceRepository persists maintenance requests
type MaintenanceRepository struct {
	db DB
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Create inserts a maintenance request
func (r *MaintenanceRepository) Create(ctx context.Context, m *models.MaintenanceRequest) error {
	query := `
		INSERT INTO maintenance_requests (
			id, user_id, flat_number, title, description, preferred_date,
			image_url, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.UserID,
		m.FlatNumber,
		m.Title,
		m.Description,
		m.PreferredDate,
		m.ImageURL,
		m.Status,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create maintenance request: %w", err)
	}

	return nil
}

// HasRecentDuplicate reports whether the user filed an identical request since the given time
func (r *MaintenanceRepository) HasRecentDuplicate(ctx context.Context, userID uuid.UUID, title, description string, since time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM maintenance_requests
			WHERE user_id = $1 AND title = $2 AND description = $3 AND created_at >= $4
		)
	`

	if err := r.db.GetContext(ctx, &exists, query, userID, title, description, since); err != nil {
		return false, fmt.Errorf("failed to check duplicate maintenance request: %w", err)
	}

	return exists, nil
}

// List returns all requests, newest first
func (r *MaintenanceRepository) List(ctx context.Context) ([]models.MaintenanceRequest, error) {
	requests := []models.MaintenanceRequest{}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests: %w", err)
	}

	return requests, nil
}

// ListByUser returns a user's own requests, newest first
func (r *MaintenanceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.MaintenanceRequest, error) {
	requests := []models.MaintenanceRequest{}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE user_id = $1 ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list maintenance requests for user: %w", err)
	}

	return requests, nil
}

// UpdateStatus sets the status of a request. Returns nil, nil when it does not exist.
func (r *MaintenanceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MaintenanceStatus) (*models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	query := `
		UPDATE maintenance_requests
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + maintenanceColumns

	if err := r.db.GetContext(ctx, &m, query, id, status, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update maintenance status: %w", err)
	}

	return &m, nil
}
