package models

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID         int64      `json:"id" db:"id"`
	ActorID    NullString `json:"actorId,omitempty" db:"actor_id"`
	Action     string     `json:"action" db:"action"`
	EntityType NullString `json:"entityType,omitempty" db:"entity_type"`
	EntityID   NullString `json:"entityId,omitempty" db:"entity_id"`
	IPAddress  NullString `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent  NullString `json:"userAgent,omitempty" db:"user_agent"`
	Details    NullString `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}
