package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/models"
)

// AnnouncementStore persists announcements
type AnnouncementStore interface {
	Create(ctx context.Context, a *models.Announcement) error
	List(ctx context.Context) ([]models.Announcement, error)
}

// AnnouncementNotifier emails an announcement to residents
type AnnouncementNotifier interface {
	NotifyAnnouncement(ctx context.Context, a *models.Announcement) error
}

// AnnouncementService publishes community notices
type AnnouncementService struct {
	store    AnnouncementStore
	notifier AnnouncementNotifier
	tasks    TaskRunner
	logger   *logrus.Logger
}

// NewAnnouncementService creates a new announcement service
func NewAnnouncementService(store AnnouncementStore, notifier AnnouncementNotifier, tasks TaskRunner, logger *logrus.Logger) *AnnouncementService {
	return &AnnouncementService{
		store:    store,
		notifier: notifier,
		tasks:    tasks,
		logger:   logger,
	}
}

// Create saves an announcement and queues the email to every approved resident
func (s *AnnouncementService) Create(ctx context.Context, title, details string) (*models.Announcement, error) {
	title = strings.TrimSpace(title)
	details = strings.TrimSpace(details)
	if title == "" {
		return nil, missing("title")
	}
	if details == "" {
		return nil, missing("details")
	}

	a := &models.Announcement{
		ID:        uuid.New(),
		Title:     title,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Create(ctx, a); err != nil {
		return nil, storageErr("failed to create announcement", err)
	}

	s.logger.WithField("announcement_id", a.ID).Info("Announcement created")

	snapshot := *a
	s.tasks.Go("email.announcement", func(ctx context.Context) error {
		return s.notifier.NotifyAnnouncement(ctx, &snapshot)
	})

	return a, nil
}

// List returns announcements, newest first. An empty list is not an error.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	announcements, err := s.store.List(ctx)
	if err != nil {
		return nil, storageErr("failed to list announcements", err)
	}
	return announcements, nil
}
