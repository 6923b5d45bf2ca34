package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smarthive/community-backend/internal/database"
)

// RateLimitService throttles unauthenticated submissions such as gate visitor requests
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxIPRequests int           // max submissions per client IP
	IPWindow      time.Duration // window for the IP limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxIPRequests: 10,
		IPWindow:      10 * time.Minute,
	}
}

// NewRateLimitService creates a new rate limit service. Zero values fall back to the defaults.
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	defaults := DefaultRateLimitConfig()
	if config.MaxIPRequests <= 0 {
		config.MaxIPRequests = defaults.MaxIPRequests
	}
	if config.IPWindow <= 0 {
		config.IPWindow = defaults.IPWindow
	}
	return &RateLimitService{
		db:     db,
		config: config,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckSubmission returns a *RateLimitError when ip has used up its window
func (s *RateLimitService) CheckSubmission(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	count, lastRequest, err := s.getRequestCount(ctx, ip, "ip", s.config.IPWindow)
	if err != nil {
		return fmt.Errorf("failed to check IP rate limit: %w", err)
	}

	if count >= s.config.MaxIPRequests {
		retryAfter := lastRequest.Add(s.config.IPWindow)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many requests from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
			RetryAfter: retryAfter,
			Type:       "ip",
		}
	}

	return nil
}

// RecordSubmission records a submission for rate limiting
func (s *RateLimitService) RecordSubmission(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	query := `
		INSERT INTO submission_rate_limits (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`
	if _, err := s.db.ExecContext(ctx, query, ip, "ip"); err != nil {
		return fmt.Errorf("failed to record IP request: %w", err)
	}

	return nil
}

// getRequestCount gets the number of requests within the time window
func (s *RateLimitService) getRequestCount(ctx context.Context, identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := time.Now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM submission_rate_limits
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastRequest time.Time

	err := s.db.QueryRowContext(ctx, query, identifier, identifierType, windowStart).Scan(&count, &lastRequest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, err
	}

	return count, lastRequest, nil
}

// CleanupExpiredRateLimits removes records older than the window
func (s *RateLimitService) CleanupExpiredRateLimits(ctx context.Context) (int64, error) {
	cutoffTime := time.Now().Add(-s.config.IPWindow)

	result, err := s.db.ExecContext(ctx, `DELETE FROM submission_rate_limits WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// IsRateLimited checks if an IP is currently rate limited
func (s *RateLimitService) IsRateLimited(ctx context.Context, ip string) (bool, time.Time, error) {
	count, lastRequest, err := s.getRequestCount(ctx, ip, "ip", s.config.IPWindow)
	if err != nil {
		return false, time.Time{}, err
	}

	if count >= s.config.MaxIPRequests {
		return true, lastRequest.Add(s.config.IPWindow), nil
	}

	return false, time.Time{}, nil
}
