package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/upload"
)

const duplicateRequestWindow = 5 * time.Second

// MaintenanceStore persists maintenance requests
type MaintenanceStore interface {
	Create(ctx context.Context, m *models.MaintenanceRequest) error
	HasRecentDuplicate(ctx context.Context, userID uuid.UUID, title, description string, since time.Time) (bool, error)
	List(ctx context.Context) ([]models.MaintenanceRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.MaintenanceStatus) (*models.MaintenanceRequest, error)
}

// MaintenanceNotifier emails the maintenance desk
type MaintenanceNotifier interface {
	NotifyMaintenanceRequest(ctx context.Context, m *models.MaintenanceRequest) error
}

// SubmitMaintenanceInput is a resident's repair request. Image is optional.
type SubmitMaintenanceInput struct {
	UserID        uuid.UUID
	Title         string
	Description   string
	PreferredDate string
	Image         io.Reader
}

// MaintenanceService handles repair requests raised by residents
type MaintenanceService struct {
	store    MaintenanceStore
	users    UserLookup
	images   ImageStore
	notifier MaintenanceNotifier
	tasks    TaskRunner
	location *time.Location
	logger   *logrus.Logger
	now      func() time.Time
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(
	store MaintenanceStore,
	users UserLookup,
	images ImageStore,
	notifier MaintenanceNotifier,
	tasks TaskRunner,
	location *time.Location,
	logger *logrus.Logger,
) *MaintenanceService {
	if location == nil {
		location = time.UTC
	}
	return &MaintenanceService{
		store:    store,
		users:    users,
		images:   images,
		notifier: notifier,
		tasks:    tasks,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit validates and stores a request for the caller's own flat
func (s *MaintenanceService) Submit(ctx context.Context, in SubmitMaintenanceInput) (*models.MaintenanceRequest, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	switch {
	case title == "":
		return nil, missing("title")
	case description == "":
		return nil, missing("description")
	case strings.TrimSpace(in.PreferredDate) == "":
		return nil, missing("preferredDate")
	case utf8.RuneCountInString(title) < 3:
		return nil, &FieldError{Field: "title", Err: ErrInvalidFormat}
	case utf8.RuneCountInString(description) < 5:
		return nil, &FieldError{Field: "description", Err: ErrInvalidFormat}
	}

	preferred, err := parseVisitDate(in.PreferredDate, s.location)
	if err != nil {
		return nil, &FieldError{Field: "preferredDate", Err: ErrInvalidFormat}
	}
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	if preferred.Before(today) {
		return nil, &FieldError{Field: "preferredDate", Err: ErrInvalidRange}
	}

	user, err := s.users.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, storageErr("failed to load user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	dup, err := s.store.HasRecentDuplicate(ctx, user.ID, title, description, s.now().Add(-duplicateRequestWindow).UTC())
	if err != nil {
		return nil, storageErr("failed to check duplicate request", err)
	}
	if dup {
		return nil, ErrDuplicateRequest
	}

	var img *upload.StoredImage
	if in.Image != nil {
		img, err = s.images.SaveImage(ctx, in.Image)
		if err != nil {
			switch {
			case errors.Is(err, upload.ErrEmpty):
				img = nil
			case errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrTooLarge):
				return nil, &FieldError{Field: "issueImage", Err: err}
			default:
				return nil, storageErr("failed to store issue image", err)
			}
		}
	}

	createdAt := s.now().UTC()
	m := &models.MaintenanceRequest{
		ID:            uuid.New(),
		UserID:        user.ID,
		FlatNumber:    user.FlatNumber,
		Title:         title,
		Description:   description,
		PreferredDate: preferred,
		Status:        models.MaintenancePending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if img != nil {
		m.ImageURL = models.NewNullString(img.URL)
	}

	if err := s.store.Create(ctx, m); err != nil {
		if img != nil {
			if rmErr := s.images.Remove(img); rmErr != nil {
				s.logger.WithError(rmErr).WithField("path", img.Path).Warn("Failed to remove orphaned issue image")
			}
		}
		return nil, storageErr("failed to save maintenance request", err)
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  m.ID,
		"user_id":     m.UserID,
		"flat_number": m.FlatNumber,
	}).Info("Maintenance request created")

	snapshot := *m
	s.tasks.Go("email.maintenance_request", func(ctx context.Context) error {
		return s.notifier.NotifyMaintenanceRequest(ctx, &snapshot)
	})

	return m, nil
}

// List returns every request, newest first
func (s *MaintenanceService) List(ctx context.Context) ([]models.MaintenanceRequest, error) {
	requests, err := s.store.List(ctx)
	if err != nil {
		return nil, storageErr("failed to list maintenance requests", err)
	}
	return requests, nil
}

// ListMine returns the caller's own requests
func (s *MaintenanceService) ListMine(ctx context.Context, userID uuid.UUID) ([]models.MaintenanceRequest, error) {
	requests, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("failed to list maintenance requests", err)
	}
	return requests, nil
}

// UpdateStatus moves a request to one of Pending, In Progress, Completed or Rejected
func (s *MaintenanceService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.MaintenanceRequest, error) {
	st := models.MaintenanceStatus(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, &FieldError{Field: "status", Err: ErrInvalidFormat}
	}

	m, err := s.store.UpdateStatus(ctx, id, st)
	if err != nil {
		return nil, storageErr("failed to update maintenance status", err)
	}
	if m == nil {
		return nil, ErrNotFound
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": m.ID,
		"status":     m.Status,
	}).Info("Maintenance status updated")

	return m, nil
}
