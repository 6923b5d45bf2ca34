package services

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/jwt"
)

// RegistrationNotifier tells applicants the outcome of their registration
type RegistrationNotifier interface {
	NotifyRegistrationDecision(ctx context.Context, user *models.User) error
}

// AdminAuthService handles the console admin: login and registration approval
type AdminAuthService struct {
	username   string
	password   string
	users      UserStore
	notifier   RegistrationNotifier
	tasks      TaskRunner
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewAdminAuthService creates a new admin auth service.
// The admin account comes from configuration, not the users table.
func NewAdminAuthService(
	username, password string,
	users UserStore,
	notifier RegistrationNotifier,
	tasks TaskRunner,
	jwtService *jwt.Service,
	logger *logrus.Logger,
) *AdminAuthService {
	return &AdminAuthService{
		username:   username,
		password:   password,
		users:      users,
		notifier:   notifier,
		tasks:      tasks,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login authenticates the admin and returns tokens carrying the admin role
func (s *AdminAuthService) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	if s.username == "" || s.password == "" {
		return nil, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}

	sub := jwt.Subject{Username: s.username, Role: models.RoleAdmin}

	access, err := s.jwtService.GenerateAccessToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtService.GenerateRefreshToken(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.LoginResponse{
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
	}, nil
}

// ListPendingUsers returns registrations awaiting a decision
func (s *AdminAuthService) ListPendingUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsersByStatus(ctx, models.UserStatusPending)
	if err != nil {
		return nil, storageErr("failed to list pending users", err)
	}
	return users, nil
}

// DecideUser approves or declines a pending registration and emails the applicant
func (s *AdminAuthService) DecideUser(ctx context.Context, userID uuid.UUID, action string) (*models.User, error) {
	var status models.UserStatus
	switch action {
	case "approve":
		status = models.UserStatusApproved
	case "decline":
		status = models.UserStatusDeclined
	default:
		return nil, &FieldError{Field: "action", Err: ErrInvalidFormat}
	}

	user, err := s.users.DecidePending(ctx, userID, status)
	if err != nil {
		return nil, storageErr("failed to update user", err)
	}
	if user == nil {
		existing, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return nil, storageErr("failed to load user", err)
		}
		if existing == nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user is %s: %w", existing.Status, ErrInvalidTransition)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"status":  user.Status,
	}).Info("Registration decided")

	snapshot := *user
	s.tasks.Go("email.registration_decision", func(ctx context.Context) error {
		return s.notifier.NotifyRegistrationDecision(ctx, &snapshot)
	})

	return user, nil
}
