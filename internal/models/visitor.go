package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitorStatus is the lifecycle state of an unknown-visitor request
type VisitorStatus string

const (
	VisitorStatusPending  VisitorStatus = "Pending"
	VisitorStatusApproved VisitorStatus = "Approved"
	VisitorStatusRejected VisitorStatus = "Rejected"
)

// IsTerminal reports whether no further decision may change the status
func (s VisitorStatus) IsTerminal() bool {
	return s == VisitorStatusApproved || s == VisitorStatusRejected
}

// VisitorRequest is an unannounced visitor waiting at the gate for a resident's decision
type VisitorRequest struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Purpose     string        `json:"purpose" db:"purpose"`
	FlatNumber  string        `json:"flatNumber" db:"flat_number"`
	ImageURL    string        `json:"imageUrl" db:"image_url"`
	Status      VisitorStatus `json:"status" db:"status"`
	RequestTime time.Time     `json:"requestTime" db:"request_time"`
	DecidedAt   NullTime      `json:"decidedAt,omitempty" db:"decided_at"`
}

// KnownVisitorStatus is the state of a pre-registered visitor pass
type KnownVisitorStatus string

const (
	KnownVisitorPending  KnownVisitorStatus = "Pending"
	KnownVisitorApproved KnownVisitorStatus = "Approved"
	KnownVisitorDenied   KnownVisitorStatus = "Denied"
)

// KnownVisitor is a visitor pre-registered by a resident and admitted by QR code
type KnownVisitor struct {
	ID         uuid.UUID          `json:"id" db:"id"`
	Name       string             `json:"name" db:"name"`
	Contact    string             `json:"contact" db:"contact"`
	Email      string             `json:"email" db:"email"`
	VisitDate  time.Time          `json:"visitDate" db:"visit_date"`
	Purpose    string             `json:"purpose" db:"purpose"`
	FlatNumber string             `json:"flatNumber" db:"flat_number"`
	CreatedBy  uuid.NullUUID      `json:"createdBy,omitempty" db:"created_by"`
	Status     KnownVisitorStatus `json:"status" db:"status"`
	VerifiedAt NullTime           `json:"verifiedAt,omitempty" db:"verified_at"`
	CreatedAt  time.Time          `json:"createdAt" db:"created_at"`
}

// CreateKnownVisitorRequest is the body of POST /visitor/create
type CreateKnownVisitorRequest struct {
	Name       string `json:"name" binding:"required"`
	Contact    string `json:"contact" binding:"required"`
	VisitDate  string `json:"visitDate" binding:"required"`
	Purpose    string `json:"purpose" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	FlatNumber string `json:"flatNumber"`
}

// VerifyVisitorRequest is the body of POST /visitor/verify
type VerifyVisitorRequest struct {
	QRData string `json:"qrData" binding:"required"`
}

// VisitorPass is the payload encoded in a known visitor's QR code
type VisitorPass struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Contact    string    `json:"contact"`
	VisitDate  time.Time `json:"visitDate"`
	Purpose    string    `json:"purpose"`
	FlatNumber string    `json:"flatNumber"`
}
