package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/realtime"
)

// EventVisitorVerified is broadcast when a guard scans a valid visitor pass
const EventVisitorVerified = "visitorVerified"

const qrImageSize = 256

// KnownVisitorStore persists pre-registered visitor passes
type KnownVisitorStore interface {
	Create(ctx context.Context, v *models.KnownVisitor) error
	List(ctx context.Context, flatNumber string) ([]models.KnownVisitor, error)
	MarkApproved(ctx context.Context, id uuid.UUID, at time.Time) (*models.KnownVisitor, error)
}

// PassSender delivers a visitor pass by email
type PassSender interface {
	SendVisitorPass(ctx context.Context, v *models.KnownVisitor, qrPNG []byte) error
}

// CreateKnownVisitorInput registers a visitor ahead of their visit
type CreateKnownVisitorInput struct {
	Name       string
	Contact    string
	Email      string
	VisitDate  string
	Purpose    string
	FlatNumber string
	CreatedBy  uuid.NullUUID
}

// VisitorVerifiedEvent is the payload of EventVisitorVerified
type VisitorVerifiedEvent struct {
	FlatNumber string    `json:"flatNumber"`
	Message    string    `json:"message"`
	VisitorID  uuid.UUID `json:"visitorId"`
}

// KnownVisitorService issues QR visitor passes and verifies them at the gate
type KnownVisitorService struct {
	store       KnownVisitorStore
	passes      PassSender
	tasks       TaskRunner
	broadcaster realtime.Broadcaster
	location    *time.Location
	logger      *logrus.Logger
	now         func() time.Time
}

// NewKnownVisitorService creates a new known visitor service
func NewKnownVisitorService(
	store KnownVisitorStore,
	passes PassSender,
	tasks TaskRunner,
	broadcaster realtime.Broadcaster,
	location *time.Location,
	logger *logrus.Logger,
) *KnownVisitorService {
	if location == nil {
		location = time.UTC
	}
	return &KnownVisitorService{
		store:       store,
		passes:      passes,
		tasks:       tasks,
		broadcaster: broadcaster,
		location:    location,
		logger:      logger,
		now:         time.Now,
	}
}

// Create stores a Pending pass and emails its QR code to the visitor
func (s *KnownVisitorService) Create(ctx context.Context, in CreateKnownVisitorInput) (*models.KnownVisitor, error) {
	fields := []struct{ name, value string }{
		{"name", in.Name},
		{"contact", in.Contact},
		{"email", in.Email},
		{"visitDate", in.VisitDate},
		{"purpose", in.Purpose},
		{"flatNumber", in.FlatNumber},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, missing(f.name)
		}
	}

	visitDate, err := parseVisitDate(in.VisitDate, s.location)
	if err != nil {
		return nil, &FieldError{Field: "visitDate", Err: ErrInvalidFormat}
	}

	v := &models.KnownVisitor{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(in.Name),
		Contact:    strings.TrimSpace(in.Contact),
		Email:      strings.TrimSpace(in.Email),
		VisitDate:  visitDate,
		Purpose:    strings.TrimSpace(in.Purpose),
		FlatNumber: strings.ToUpper(strings.TrimSpace(in.FlatNumber)),
		CreatedBy:  in.CreatedBy,
		Status:     models.KnownVisitorPending,
		CreatedAt:  s.now().UTC(),
	}

	png, err := EncodeVisitorPass(v)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, v); err != nil {
		return nil, storageErr("failed to save known visitor", err)
	}

	s.logger.WithFields(logrus.Fields{
		"visitor_id":  v.ID,
		"flat_number": v.FlatNumber,
		"visit_date":  v.VisitDate.Format("2006-01-02"),
	}).Info("Visitor pass created")

	snapshot := *v
	s.tasks.Go("email.visitor_pass", func(ctx context.Context) error {
		return s.passes.SendVisitorPass(ctx, &snapshot, png)
	})

	return v, nil
}

// Verify decodes a scanned pass and admits the visitor
func (s *KnownVisitorService) Verify(ctx context.Context, qrData string) (*models.KnownVisitor, error) {
	var pass models.VisitorPass
	if err := json.Unmarshal([]byte(qrData), &pass); err != nil || pass.ID == uuid.Nil {
		return nil, ErrInvalidQRCode
	}

	v, err := s.store.MarkApproved(ctx, pass.ID, s.now().UTC())
	if err != nil {
		return nil, storageErr("failed to approve visitor", err)
	}
	if v == nil {
		return nil, ErrInvalidQRCode
	}

	s.logger.WithFields(logrus.Fields{
		"visitor_id":  v.ID,
		"flat_number": v.FlatNumber,
	}).Info("Visitor pass verified")

	event := VisitorVerifiedEvent{
		FlatNumber: v.FlatNumber,
		Message:    fmt.Sprintf("Visitor %s approved", v.Name),
		VisitorID:  v.ID,
	}
	s.tasks.Go("broadcast."+EventVisitorVerified, func(ctx context.Context) error {
		return s.broadcaster.Broadcast(EventVisitorVerified, event)
	})

	return v, nil
}

// List returns passes for one flat, or all passes when flatNumber is empty
func (s *KnownVisitorService) List(ctx context.Context, flatNumber string) ([]models.KnownVisitor, error) {
	visitors, err := s.store.List(ctx, strings.ToUpper(strings.TrimSpace(flatNumber)))
	if err != nil {
		return nil, storageErr("failed to list known visitors", err)
	}
	return visitors, nil
}

// EncodeVisitorPass renders the QR code PNG a guard scans at the gate
func EncodeVisitorPass(v *models.KnownVisitor) ([]byte, error) {
	payload, err := json.Marshal(models.VisitorPass{
		ID:         v.ID,
		Name:       v.Name,
		Contact:    v.Contact,
		VisitDate:  v.VisitDate,
		Purpose:    v.Purpose,
		FlatNumber: v.FlatNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode visitor pass: %w", err)
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

func parseVisitDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	return parseBookingTime(raw, loc)
}
