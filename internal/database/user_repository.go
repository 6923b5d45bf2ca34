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

const userColumns = `id, username, email, password_hash, flat_number, phone_number,
		status, role, last_login_at, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// CreateUser inserts a new user. Username or email collisions return ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = models.UserStatusPending
	}
	if user.Role == "" {
		user.Role = models.RoleResident
	}

	query := `
		INSERT INTO users (
			id, username, email, password_hash, flat_number, phone_number,
			status, role, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FlatNumber,
		user.PhoneNumber,
		user.Status,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID. Returns nil, nil when no such user exists.
func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username. Returns nil, nil when not found.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &user, nil
}

// ListUsersByStatus returns users in the given registration state, oldest first
func (r *UserRepository) ListUsersByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE status = $1 ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &users, query, status); err != nil {
		return nil, fmt.Errorf("failed to list users by status: %w", err)
	}

	return users, nil
}

// ListApprovedByFlat returns the approved residents registered to a flat
func (r *UserRepository) ListApprovedByFlat(ctx context.Context, flatNumber string) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE flat_number = $1 AND status = 'approved'`

	if err := r.db.SelectContext(ctx, &users, query, flatNumber); err != nil {
		return nil, fmt.Errorf("failed to list users for flat: %w", err)
	}

	return users, nil
}

// ListApprovedEmails returns the email address of every approved user
func (r *UserRepository) ListApprovedEmails(ctx context.Context) ([]string, error) {
	emails := []string{}
	query := `SELECT email FROM users WHERE status = 'approved' ORDER BY email`

	if err := r.db.SelectContext(ctx, &emails, query); err != nil {
		return nil, fmt.Errorf("failed to list approved emails: %w", err)
	}

	return emails, nil
}

// DecidePending moves a pending registration to approved or declined.
// Returns nil, nil when the user does not exist or was already decided.
func (r *UserRepository) DecidePending(ctx context.Context, id uuid.UUID, status models.UserStatus) (*models.User, error) {
	var user models.User
	query := `
		UPDATE users
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + userColumns

	if err := r.db.GetContext(ctx, &user, query, id, status, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}

	return &user, nil
}

// UpdateProfile updates a user's contact details. The flat number is never written.
// Empty fields keep their current value. Returns nil, nil when the user does not exist.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, email, phoneNumber string) (*models.User, error) {
	var user models.User
	query := `
		UPDATE users
		SET email = COALESCE(NULLIF($2, ''), email),
			phone_number = COALESCE(NULLIF($3, ''), phone_number),
			updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	if err := r.db.GetContext(ctx, &user, query, id, email, phoneNumber, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &user, nil
}

// UpdateLastLogin stamps the user's last successful login
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}
