package models

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is a community-wide notice published by the admin
type Announcement struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"date" db:"created_at"`
}

// CreateAnnouncementRequest is the body of POST /announcements/create
type CreateAnnouncementRequest struct {
	Title   string `json:"title" binding:"required"`
	Details string `json:"details" binding:"required"`
}
