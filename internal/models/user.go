package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ns.Valid = s != nil
	if s != nil {
		ns.String = *s
	}
	return nil
}

// NewNullString returns a valid NullString, or an invalid one for ""
func NewNullString(s string) NullString {
	return NullString{sql.NullString{String: s, Valid: s != ""}}
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	nt.Valid = t != nil
	if t != nil {
		nt.Time = *t
	}
	return nil
}

// UserStatus is the registration state of a resident account
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
	UserStatusDeclined UserStatus = "declined"
)

// Roles carried in access tokens. Admin is never stored in users.
const (
	RoleResident = "resident"
	RoleSecurity = "security"
	RoleAdmin    = "admin"
)

// User represents a registered resident or security guard
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	FlatNumber   string     `json:"flatNumber" db:"flat_number"`
	PhoneNumber  string     `json:"phoneNumber" db:"phone_number"`
	Status       UserStatus `json:"status" db:"status"`
	Role         string     `json:"role" db:"role"`
	LastLoginAt  NullTime   `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsApproved reports whether the account may sign in and book amenities
func (u *User) IsApproved() bool {
	return u.Status == UserStatusApproved
}

// Flat is a dwelling unit residents register against
type Flat struct {
	FlatNumber string `json:"flatNumber" db:"flat_number"`
	Block      string `json:"block" db:"block"`
	Floor      int    `json:"floor" db:"floor"`
}

// RegisterUserRequest is the body of POST /users/register
type RegisterUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	FlatNumber  string `json:"flatNumber" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

// LoginRequest is shared by resident and admin login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries editable profile fields. Flat number is not one of them.
type UpdateProfileRequest struct {
	Email       string `json:"email" binding:"omitempty,email"`
	PhoneNumber string `json:"phoneNumber"`
}

// UserDecisionRequest is the body of POST /admin/approve-user
type UserDecisionRequest struct {
	UserID string `json:"userId" binding:"required"`
	Action string `json:"action" binding:"required,oneof=approve decline"`
}

// LoginResponse is returned by user and admin login. Token is the access token.
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
	User         *User  `json:"user,omitempty"`
}

// RefreshTokenRequest is the body of POST /users/refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
