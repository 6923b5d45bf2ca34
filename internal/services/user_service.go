package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/database"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/jwt"
	"github.com/smarthive/community-backend/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists resident and security accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsersByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error)
	DecidePending(ctx context.Context, id uuid.UUID, status models.UserStatus) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, email, phoneNumber string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// FlatRegistry knows which flats exist
type FlatRegistry interface {
	Exists(ctx context.Context, flatNumber string) (bool, error)
}

// UserService handles resident registration, login and profiles
type UserService struct {
	users      UserStore
	flats      FlatRegistry
	jwtService *jwt.Service
	phones     *validator.PhoneValidator
	bcryptCost int
	logger     *logrus.Logger
}

// NewUserService creates a new user service
func NewUserService(users UserStore, flats FlatRegistry, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		users:      users,
		flats:      flats,
		jwtService: jwtService,
		phones:     validator.NewPhoneValidator(),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a pending account that an admin must approve before login
func (s *UserService) Register(ctx context.Context, req models.RegisterUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" {
		return nil, missing("username")
	}
	if email == "" {
		return nil, missing("email")
	}

	flat, err := validator.NormalizeFlatNumber(req.FlatNumber)
	if err != nil {
		return nil, &FieldError{Field: "flatNumber", Err: ErrInvalidFlat}
	}
	exists, err := s.flats.Exists(ctx, flat)
	if err != nil {
		return nil, storageErr("failed to check flat", err)
	}
	if !exists {
		return nil, &FieldError{Field: "flatNumber", Err: ErrInvalidFlat}
	}

	phone, err := s.phones.Validate(req.PhoneNumber)
	if err != nil {
		return nil, &FieldError{Field: "phoneNumber", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FlatNumber:   flat,
		PhoneNumber:  phone,
		Status:       models.UserStatusPending,
		Role:         models.RoleResident,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, storageErr("failed to create user", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"flat_number": user.FlatNumber,
	}).Info("Registration request received")

	return user, nil
}

// Login checks credentials of an approved account and issues tokens
func (s *UserService) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, storageErr("failed to load user", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsApproved() {
		return nil, ErrNotApproved
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}

	return resp, nil
}

// Refresh exchanges a refresh token for a new access token.
// Accounts that are no longer approved cannot refresh.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if claims.Role == models.RoleAdmin {
		access, err := s.jwtService.GenerateAccessToken(claims.Identity())
		if err != nil {
			return nil, fmt.Errorf("failed to generate access token: %w", err)
		}
		return &models.LoginResponse{
			Token:        access,
			RefreshToken: refreshToken,
			ExpiresIn:    int64(s.jwtService.AccessTokenExpiry().Seconds()),
		}, nil
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, storageErr("failed to load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsApproved() {
		return nil, ErrNotApproved
	}

	return s.issueTokens(user)
}

// GetProfile returns the caller's account
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storageErr("failed to load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile changes email and/or phone number. Blank fields are left unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	phone := ""
	if strings.TrimSpace(req.PhoneNumber) != "" {
		p, err := s.phones.Validate(req.PhoneNumber)
		if err != nil {
			return nil, &FieldError{Field: "phoneNumber", Err: err}
		}
		phone = p
	}

	user, err := s.users.UpdateProfile(ctx, userID, email, phone)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, storageErr("failed to update profile", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) issueTokens(user *models.User) (*models.LoginResponse, error) {
	sub := jwt.Subject{
		UserID:     user.ID,
		Username:   user.Username,
		FlatNumber: user.FlatNumber,
		Role:       user.Role,
	}

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
		User:         user,
	}, nil
}
