package database

import (
	"context"
	"fmt"

	"github.com/smarthive/community-backend/internal/models"
)

// AnnouncementRepository persists community announcements
type AnnouncementRepository struct {
	db DB
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts an announcement
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	query := `INSERT INTO announcements (id, title, details, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Title, a.Details, a.CreatedAt); err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}

	return nil
}

// List returns all announcements, newest first
func (r *AnnouncementRepository) List(ctx context.Context) ([]models.Announcement, error) {
	announcements := []models.Announcement{}
	query := `SELECT id, title, details, created_at FROM announcements ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &announcements, query); err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}

	return announcements, nil
}
