package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smarthive/community-backend/internal/database"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/utils"
)

// AuditService records security-relevant events in audit_logs
type AuditService struct {
	db      database.DB
	enabled bool
}

// NewAuditService creates a new audit service. A disabled service accepts and drops events.
func NewAuditService(db database.DB, enabled bool) *AuditService {
	return &AuditService{
		db:      db,
		enabled: enabled,
	}
}

// AuditEvent represents a security event to be logged
type AuditEvent struct {
	ActorID    string // user id, "admin", or "" before authentication
	Action     string // e.g. "login", "amenity_booked", "visitor_approved"
	EntityType string // e.g. "user", "booking", "visitor"
	EntityID   string
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{}
}

// LogLogin logs a resident or admin login attempt
func (s *AuditService) LogLogin(ctx context.Context, actorID, username, ipAddress, userAgent string, success bool, reason string) error {
	action := "login_success"
	if !success {
		action = "login_failed"
	}

	details := map[string]interface{}{
		"username": username,
		"success":  success,
	}
	if reason != "" {
		details["reason"] = reason
	}

	return s.Record(ctx, AuditEvent{
		ActorID:    actorID,
		Action:     action,
		EntityType: "user",
		EntityID:   actorID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogBooking logs a committed amenity booking
func (s *AuditService) LogBooking(ctx context.Context, userID, bookingID uuid.UUID, amenity, flatNumber string, start, end time.Time, ipAddress, userAgent string) error {
	return s.Record(ctx, AuditEvent{
		ActorID:    userID.String(),
		Action:     "amenity_booked",
		EntityType: "booking",
		EntityID:   bookingID.String(),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"amenity":     amenity,
			"flat_number": flatNumber,
			"start":       start,
			"end":         end,
		},
	})
}

// LogVisitorDecision logs a resident approving or rejecting a visitor
func (s *AuditService) LogVisitorDecision(ctx context.Context, actorID string, visitorID uuid.UUID, status, ipAddress, userAgent string) error {
	return s.Record(ctx, AuditEvent{
		ActorID:    actorID,
		Action:     "visitor_" + status,
		EntityType: "visitor",
		EntityID:   visitorID.String(),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

// LogUserDecision logs the admin approving or declining a registration
func (s *AuditService) LogUserDecision(ctx context.Context, userID uuid.UUID, status, ipAddress, userAgent string) error {
	return s.Record(ctx, AuditEvent{
		ActorID:    "admin",
		Action:     "registration_" + status,
		EntityType: "user",
		EntityID:   userID.String(),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

// LogRateLimitViolation logs a rejected public submission
func (s *AuditService) LogRateLimitViolation(ctx context.Context, ipAddress, userAgent, limitType string, retryAfter time.Time) error {
	return s.Record(ctx, AuditEvent{
		Action:     "rate_limit_violation",
		EntityType: "rate_limit",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: map[string]interface{}{
			"limit_type":  limitType,
			"retry_after": retryAfter,
		},
	})
}

// Record writes an event to the audit_logs table with parsed device info attached
func (s *AuditService) Record(ctx context.Context, event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	details := event.Details
	if details == nil {
		details = make(map[string]interface{})
	}
	details["device_info"] = utils.ParseUserAgent(event.UserAgent)

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		nullIfEmpty(event.ActorID),
		event.Action,
		nullIfEmpty(event.EntityType),
		nullIfEmpty(event.EntityID),
		nullIfEmpty(event.IPAddress),
		nullIfEmpty(event.UserAgent),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// Recent returns the newest audit entries, newest first. limit is clamped to [1, 500].
func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, actor_id, action, entity_type, entity_id, ip_address, user_agent, details::text AS details, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	logs := []models.AuditLog{}
	if err := s.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, storageErr("list audit logs", err)
	}
	return logs, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
