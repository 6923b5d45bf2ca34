package database

import (
	"context"
	"fmt"

	"github.com/smarthive/community-backend/internal/models"
)

// FlatRepository reads the seeded flat registry
type FlatRepository struct {
	db DB
}

// NewFlatRepository creates a new flat repository
func NewFlatRepository(db DB) *FlatRepository {
	return &FlatRepository{db: db}
}

// Exists reports whether a flat number is part of the community
func (r *FlatRepository) Exists(ctx context.Context, flatNumber string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM flats WHERE flat_number = $1)`

	if err := r.db.GetContext(ctx, &exists, query, flatNumber); err != nil {
		return false, fmt.Errorf("failed to check flat: %w", err)
	}

	return exists, nil
}

// List returns every flat ordered by number
func (r *FlatRepository) List(ctx context.Context) ([]models.Flat, error) {
	flats := []models.Flat{}
	query := `SELECT flat_number, block, floor FROM flats ORDER BY flat_number`

	if err := r.db.SelectContext(ctx, &flats, query); err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}

	return flats, nil
}
