package models

import (
	"time"

	"github.com/google/uuid"
)

// MaintenanceStatus is the progress of a maintenance request
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
	MaintenanceRejected   MaintenanceStatus = "Rejected"
)

// Valid reports whether s is one of the known statuses
func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted, MaintenanceRejected:
		return true
	}
	return false
}

// MaintenanceRequest is a repair request raised by a resident
type MaintenanceRequest struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	UserID        uuid.UUID         `json:"userId" db:"user_id"`
	FlatNumber    string            `json:"flatNumber" db:"flat_number"`
	Title         string            `json:"title" db:"title"`
	Description   string            `json:"description" db:"description"`
	PreferredDate time.Time         `json:"preferredDate" db:"preferred_date"`
	ImageURL      NullString        `json:"imageUrl" db:"image_url"`
	Status        MaintenanceStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time         `json:"updatedAt" db:"updated_at"`
}

// UpdateMaintenanceStatusRequest is the body of PATCH /requests/:id/status
type UpdateMaintenanceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
