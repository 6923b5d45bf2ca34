package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/metrics"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/realtime"
	"github.com/smarthive/community-backend/pkg/upload"
)

// Events pushed to connected dashboards
const (
	EventNewVisitorRequest   = "newVisitorRequest"
	EventVisitorStatusUpdate = "visitorStatusUpdate"
)

// VisitorStore persists unknown-visitor requests
type VisitorStore interface {
	Create(ctx context.Context, v *models.VisitorRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error)
	ListPendingByFlat(ctx context.Context, flatNumber string) ([]models.VisitorRequest, error)
	ListHistory(ctx context.Context) ([]models.VisitorRequest, error)
	DecidePending(ctx context.Context, id uuid.UUID, status models.VisitorStatus, decidedAt time.Time) (*models.VisitorRequest, error)
}

// ImageStore keeps uploaded photos
type ImageStore interface {
	SaveImage(ctx context.Context, r io.Reader) (*upload.StoredImage, error)
	Remove(img *upload.StoredImage) error
}

// VisitorNotifier emails residents about a visitor at the gate
type VisitorNotifier interface {
	NotifyVisitorRequest(ctx context.Context, v *models.VisitorRequest) error
}

// SubmitVisitorInput is a gate submission. Image is nil when no photo was attached.
type SubmitVisitorInput struct {
	Name       string
	Purpose    string
	FlatNumber string
	Image      io.Reader
}

// NewVisitorEvent is the payload of EventNewVisitorRequest
type NewVisitorEvent struct {
	FlatNumber string    `json:"flatNumber"`
	Message    string    `json:"message"`
	ImageURL   string    `json:"imageUrl"`
	VisitorID  uuid.UUID `json:"visitorId"`
}

// VisitorStatusEvent is the payload of EventVisitorStatusUpdate
type VisitorStatusEvent struct {
	FlatNumber string               `json:"flatNumber"`
	Message    string               `json:"message"`
	VisitorID  uuid.UUID            `json:"visitorId"`
	Status     models.VisitorStatus `json:"status"`
}

// VisitorService runs the Pending -> Approved | Rejected lifecycle of unknown visitors
type VisitorService struct {
	store       VisitorStore
	images      ImageStore
	notifier    VisitorNotifier
	tasks       TaskRunner
	broadcaster realtime.Broadcaster
	logger      *logrus.Logger
	now         func() time.Time
}

// NewVisitorService creates a new visitor service
func NewVisitorService(
	store VisitorStore,
	images ImageStore,
	notifier VisitorNotifier,
	tasks TaskRunner,
	broadcaster realtime.Broadcaster,
	logger *logrus.Logger,
) *VisitorService {
	return &VisitorService{
		store:       store,
		images:      images,
		notifier:    notifier,
		tasks:       tasks,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit stores the photo and a Pending request, then notifies the flat
func (s *VisitorService) Submit(ctx context.Context, in SubmitVisitorInput) (*models.VisitorRequest, error) {
	name := strings.TrimSpace(in.Name)
	purpose := strings.TrimSpace(in.Purpose)
	flat := strings.TrimSpace(in.FlatNumber)

	switch {
	case name == "":
		return nil, missing("name")
	case purpose == "":
		return nil, missing("purpose")
	case flat == "":
		return nil, missing("flatNumber")
	case in.Image == nil:
		return nil, ErrMissingImage
	}

	img, err := s.images.SaveImage(ctx, in.Image)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrEmpty):
			return nil, ErrMissingImage
		case errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrTooLarge):
			return nil, &FieldError{Field: "image", Err: err}
		}
		return nil, storageErr("failed to store visitor image", err)
	}

	v := &models.VisitorRequest{
		ID:          uuid.New(),
		Name:        name,
		Purpose:     purpose,
		FlatNumber:  flat,
		ImageURL:    img.URL,
		Status:      models.VisitorStatusPending,
		RequestTime: s.now().UTC(),
	}

	if err := s.store.Create(ctx, v); err != nil {
		if rmErr := s.images.Remove(img); rmErr != nil {
			s.logger.WithError(rmErr).WithField("path", img.Path).Warn("Failed to remove orphaned visitor image")
		}
		return nil, storageErr("failed to save visitor request", err)
	}

	metrics.IncVisitorRequest()
	s.logger.WithFields(logrus.Fields{
		"visitor_id":  v.ID,
		"flat_number": v.FlatNumber,
	}).Info("Unknown visitor request created")

	snapshot := *v
	s.tasks.Go("email.visitor_request", func(ctx context.Context) error {
		return s.notifier.NotifyVisitorRequest(ctx, &snapshot)
	})

	event := NewVisitorEvent{
		FlatNumber: v.FlatNumber,
		Message:    fmt.Sprintf("New visitor request from %s for %s. Please review.", v.Name, v.Purpose),
		ImageURL:   v.ImageURL,
		VisitorID:  v.ID,
	}
	s.tasks.Go("broadcast."+EventNewVisitorRequest, func(ctx context.Context) error {
		return s.broadcaster.Broadcast(EventNewVisitorRequest, event)
	})

	return v, nil
}

// Approve moves a Pending request to Approved
func (s *VisitorService) Approve(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error) {
	return s.decide(ctx, id, models.VisitorStatusApproved)
}

// Reject moves a Pending request to Rejected
func (s *VisitorService) Reject(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error) {
	return s.decide(ctx, id, models.VisitorStatusRejected)
}

// decide applies a decision with a single conditional update. Repeating the decision a
// request already holds returns it unchanged; the opposite decision is ErrInvalidTransition.
// Only the call that performed the transition broadcasts.
func (s *VisitorService) decide(ctx context.Context, id uuid.UUID, status models.VisitorStatus) (*models.VisitorRequest, error) {
	decision := strings.ToLower(string(status))

	v, err := s.store.DecidePending(ctx, id, status, s.now().UTC())
	if err != nil {
		metrics.IncVisitorDecision(decision, "error")
		return nil, storageErr("failed to update visitor request", err)
	}

	if v == nil {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			metrics.IncVisitorDecision(decision, "error")
			return nil, storageErr("failed to load visitor request", err)
		}
		if current == nil {
			metrics.IncVisitorDecision(decision, "not_found")
			return nil, ErrNotFound
		}
		if current.Status == status {
			metrics.IncVisitorDecision(decision, "noop")
			return current, nil
		}
		metrics.IncVisitorDecision(decision, "conflict")
		return nil, fmt.Errorf("visitor request is %s: %w", current.Status, ErrInvalidTransition)
	}

	metrics.IncVisitorDecision(decision, "applied")
	s.logger.WithFields(logrus.Fields{
		"visitor_id":  v.ID,
		"flat_number": v.FlatNumber,
		"status":      v.Status,
	}).Info("Visitor request decided")

	event := VisitorStatusEvent{
		FlatNumber: v.FlatNumber,
		Message:    fmt.Sprintf("Visitor %s has been %s.", v.Name, decision),
		VisitorID:  v.ID,
		Status:     v.Status,
	}
	s.tasks.Go("broadcast."+EventVisitorStatusUpdate, func(ctx context.Context) error {
		return s.broadcaster.Broadcast(EventVisitorStatusUpdate, event)
	})

	return v, nil
}

// ListPending returns the flat's requests awaiting a decision
func (s *VisitorService) ListPending(ctx context.Context, flatNumber string) ([]models.VisitorRequest, error) {
	flat := strings.TrimSpace(flatNumber)
	if flat == "" {
		return nil, missing("flatNumber")
	}

	requests, err := s.store.ListPendingByFlat(ctx, flat)
	if err != nil {
		return nil, storageErr("failed to list pending visitors", err)
	}
	return requests, nil
}

// History returns every request, newest first
func (s *VisitorService) History(ctx context.Context) ([]models.VisitorRequest, error) {
	requests, err := s.store.ListHistory(ctx)
	if err != nil {
		return nil, storageErr("failed to list visitor history", err)
	}
	return requests, nil
}
