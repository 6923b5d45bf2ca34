package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarthive/community-backend/internal/database"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/upload"
)

func newTestLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// syncTasks runs submitted tasks inline so assertions can follow immediately
type syncTasks struct {
	mu    sync.Mutex
	kinds []string
	errs  []error
}

func (t *syncTasks) Go(kind string, run func(ctx context.Context) error) {
	err := run(context.Background())
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kinds = append(t.kinds, kind)
	t.errs = append(t.errs, err)
}

func (t *syncTasks) Kinds() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.kinds...)
}

type sentEvent struct {
	Name    string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *recordingBroadcaster) Broadcast(event string, payload interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, sentEvent{Name: event, Payload: payload})
	return nil
}

func (b *recordingBroadcaster) Events() []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]sentEvent(nil), b.events...)
}

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	err   error
	login []uuid.UUID
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return database.ErrDuplicate
		}
	}
	user.ID = uuid.New()
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ListUsersByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []models.User{}
	for _, u := range f.byID {
		if u.Status == status {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (f *fakeUsers) DecidePending(ctx context.Context, id uuid.UUID, status models.UserStatus) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.Status != models.UserStatusPending {
		return nil, nil
	}
	u.Status = status
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id uuid.UUID, email, phoneNumber string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	if email != "" {
		u.Email = email
	}
	if phoneNumber != "" {
		u.PhoneNumber = phoneNumber
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.login = append(f.login, id)
	return nil
}

func (f *fakeUsers) ListApprovedByFlat(ctx context.Context, flatNumber string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []models.User{}
	for _, u := range f.byID {
		if u.FlatNumber == flatNumber && u.IsApproved() {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (f *fakeUsers) ListApprovedEmails(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	emails := []string{}
	for _, u := range f.byID {
		if u.IsApproved() {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

type fakeFlats map[string]bool

func (f fakeFlats) Exists(ctx context.Context, flatNumber string) (bool, error) {
	return f[flatNumber], nil
}

// memAmenityStore commits under one mutex, standing in for the amenity row lock
type memAmenityStore struct {
	mu        sync.Mutex
	amenities map[string]*models.Amenity
	bookings  []models.Booking
	commits   int
	// skipPrecheck makes FindConflict report nothing so races reach CommitBooking
	skipPrecheck bool
}

func newMemAmenityStore(names ...string) *memAmenityStore {
	s := &memAmenityStore{amenities: make(map[string]*models.Amenity)}
	for _, n := range names {
		s.amenities[database.NormalizeAmenityName(n)] = &models.Amenity{ID: uuid.New(), Name: n, IsAvailable: true}
	}
	return s
}

func (s *memAmenityStore) GetAmenityByName(ctx context.Context, name string) (*models.Amenity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.amenities[database.NormalizeAmenityName(name)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *memAmenityStore) FindConflict(ctx context.Context, amenityID uuid.UUID, start, end time.Time) (*models.Booking, error) {
	if s.skipPrecheck {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflictLocked(amenityID, start, end), nil
}

func (s *memAmenityStore) conflictLocked(amenityID uuid.UUID, start, end time.Time) *models.Booking {
	for i := range s.bookings {
		b := s.bookings[i]
		if b.AmenityID == amenityID && b.Overlaps(start, end) {
			return &b
		}
	}
	return nil
}

func (s *memAmenityStore) CommitBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.conflictLocked(booking.AmenityID, booking.StartAt, booking.EndAt); existing != nil {
		return &database.OverlapError{Existing: existing}
	}
	booking.ID = uuid.New()
	booking.CreatedAt = time.Now()
	s.bookings = append(s.bookings, *booking)
	s.commits++
	return nil
}

func (s *memAmenityStore) ListAmenitiesWithBookings(ctx context.Context) ([]models.Amenity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Amenity{}
	for _, a := range s.amenities {
		cp := *a
		cp.Bookings = []models.Booking{}
		for _, b := range s.bookings {
			if b.AmenityID == a.ID {
				cp.Bookings = append(cp.Bookings, b)
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

type memVisitorStore struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.VisitorRequest
	creates  int
}

func newMemVisitorStore() *memVisitorStore {
	return &memVisitorStore{requests: make(map[uuid.UUID]*models.VisitorRequest)}
}

func (s *memVisitorStore) Create(ctx context.Context, v *models.VisitorRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.requests[v.ID] = &cp
	s.creates++
	return nil
}

func (s *memVisitorStore) GetByID(ctx context.Context, id uuid.UUID) (*models.VisitorRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (s *memVisitorStore) ListPendingByFlat(ctx context.Context, flatNumber string) ([]models.VisitorRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.VisitorRequest{}
	for _, v := range s.requests {
		if v.FlatNumber == flatNumber && v.Status == models.VisitorStatusPending {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *memVisitorStore) ListHistory(ctx context.Context) ([]models.VisitorRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.VisitorRequest{}
	for _, v := range s.requests {
		out = append(out, *v)
	}
	return out, nil
}

func (s *memVisitorStore) DecidePending(ctx context.Context, id uuid.UUID, status models.VisitorStatus, decidedAt time.Time) (*models.VisitorRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.requests[id]
	if !ok || v.Status != models.VisitorStatusPending {
		return nil, nil
	}
	v.Status = status
	v.DecidedAt = models.NullTime{}
	v.DecidedAt.Time, v.DecidedAt.Valid = decidedAt, true
	cp := *v
	return &cp, nil
}

type fakeImages struct {
	mu      sync.Mutex
	saved   []*upload.StoredImage
	removed []*upload.StoredImage
	err     error
}

func (f *fakeImages) SaveImage(ctx context.Context, r io.Reader) (*upload.StoredImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, upload.ErrEmpty
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	img := &upload.StoredImage{
		URL:         "/uploads/" + uuid.NewString() + ".jpg",
		Path:        "/tmp/uploads/x.jpg",
		ContentType: "image/jpeg",
		Size:        int64(buf.Len()),
	}
	f.saved = append(f.saved, img)
	return img, nil
}

func (f *fakeImages) Remove(img *upload.StoredImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, img)
	return nil
}

type fakeNotifier struct {
	mu            sync.Mutex
	visitors      []models.VisitorRequest
	passes        []models.KnownVisitor
	decisions     []models.User
	announcements []models.Announcement
	maintenance   []models.MaintenanceRequest
}

func (f *fakeNotifier) NotifyVisitorRequest(ctx context.Context, v *models.VisitorRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visitors = append(f.visitors, *v)
	return nil
}

func (f *fakeNotifier) SendVisitorPass(ctx context.Context, v *models.KnownVisitor, qrPNG []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes = append(f.passes, *v)
	return nil
}

func (f *fakeNotifier) NotifyRegistrationDecision(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, *user)
	return nil
}

func (f *fakeNotifier) NotifyAnnouncement(ctx context.Context, a *models.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcements = append(f.announcements, *a)
	return nil
}

func (f *fakeNotifier) NotifyMaintenanceRequest(ctx context.Context, m *models.MaintenanceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maintenance = append(f.maintenance, *m)
	return nil
}
