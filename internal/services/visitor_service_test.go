package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/pkg/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visitorFixture struct {
	service     *VisitorService
	store       *memVisitorStore
	images      *fakeImages
	notifier    *fakeNotifier
	tasks       *syncTasks
	broadcaster *recordingBroadcaster
}

func newVisitorFixture() *visitorFixture {
	f := &visitorFixture{
		store:       newMemVisitorStore(),
		images:      &fakeImages{},
		notifier:    &fakeNotifier{},
		tasks:       &syncTasks{},
		broadcaster: &recordingBroadcaster{},
	}
	f.service = NewVisitorService(f.store, f.images, f.notifier, f.tasks, f.broadcaster, newTestLogger())
	return f
}

func (f *visitorFixture) submit(t *testing.T) *models.VisitorRequest {
	t.Helper()
	v, err := f.service.Submit(context.Background(), SubmitVisitorInput{
		Name:       "Ravi",
		Purpose:    "Delivery",
		FlatNumber: "A101",
		Image:      strings.NewReader("\xff\xd8\xff\xe0 jpeg bytes"),
	})
	require.NoError(t, err)
	return v
}

func TestSubmitVisitor(t *testing.T) {
	f := newVisitorFixture()

	v, err := f.service.Submit(context.Background(), SubmitVisitorInput{
		Name:       "  Ravi ",
		Purpose:    " Delivery",
		FlatNumber: "A101 ",
		Image:      strings.NewReader("\xff\xd8\xff\xe0 jpeg bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ravi", v.Name)
	assert.Equal(t, "Delivery", v.Purpose)
	assert.Equal(t, "A101", v.FlatNumber)
	assert.Equal(t, models.VisitorStatusPending, v.Status)
	assert.False(t, v.RequestTime.IsZero())
	assert.True(t, strings.HasPrefix(v.ImageURL, "/uploads/"))

	require.Len(t, f.notifier.visitors, 1)
	assert.Equal(t, v.ID, f.notifier.visitors[0].ID)

	events := f.broadcaster.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventNewVisitorRequest, events[0].Name)
	payload := events[0].Payload.(NewVisitorEvent)
	assert.Equal(t, "A101", payload.FlatNumber)
	assert.Equal(t, "New visitor request from Ravi for Delivery. Please review.", payload.Message)
	assert.Equal(t, v.ImageURL, payload.ImageURL)
	assert.Equal(t, v.ID, payload.VisitorID)
}

func TestSubmitVisitor_MissingImage(t *testing.T) {
	f := newVisitorFixture()

	_, err := f.service.Submit(context.Background(), SubmitVisitorInput{
		Name:       "Ravi",
		Purpose:    "Delivery",
		FlatNumber: "A101",
	})
	assert.ErrorIs(t, err, ErrMissingImage)

	_, err = f.service.Submit(context.Background(), SubmitVisitorInput{
		Name:       "Ravi",
		Purpose:    "Delivery",
		FlatNumber: "A101",
		Image:      strings.NewReader(""),
	})
	assert.ErrorIs(t, err, ErrMissingImage)

	assert.Zero(t, f.store.creates)
	assert.Empty(t, f.broadcaster.Events())
}

func TestSubmitVisitor_MissingFields(t *testing.T) {
	f := newVisitorFixture()

	inputs := []SubmitVisitorInput{
		{Name: " ", Purpose: "Delivery", FlatNumber: "A101", Image: strings.NewReader("x")},
		{Name: "Ravi", Purpose: "", FlatNumber: "A101", Image: strings.NewReader("x")},
		{Name: "Ravi", Purpose: "Delivery", FlatNumber: "\t", Image: strings.NewReader("x")},
	}
	for _, in := range inputs {
		_, err := f.service.Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrMissingField)
	}
	assert.Zero(t, f.store.creates)
	assert.Empty(t, f.images.saved)
}

func TestSubmitVisitor_RejectsNonImage(t *testing.T) {
	f := newVisitorFixture()
	f.images.err = upload.ErrNotImage

	_, err := f.service.Submit(context.Background(), SubmitVisitorInput{
		Name: "Ravi", Purpose: "Delivery", FlatNumber: "A101", Image: strings.NewReader("%PDF"),
	})
	assert.ErrorIs(t, err, upload.ErrNotImage)
	assert.Zero(t, f.store.creates)
}

func TestApproveVisitor(t *testing.T) {
	f := newVisitorFixture()
	v := f.submit(t)

	approved, err := f.service.Approve(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusApproved, approved.Status)
	assert.True(t, approved.DecidedAt.Valid)

	events := f.broadcaster.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventVisitorStatusUpdate, events[1].Name)
	payload := events[1].Payload.(VisitorStatusEvent)
	assert.Equal(t, "Visitor Ravi has been approved.", payload.Message)
	assert.Equal(t, models.VisitorStatusApproved, payload.Status)
	assert.Equal(t, "A101", payload.FlatNumber)
}

func TestRejectVisitor(t *testing.T) {
	f := newVisitorFixture()
	v := f.submit(t)

	rejected, err := f.service.Reject(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusRejected, rejected.Status)

	events := f.broadcaster.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Visitor Ravi has been rejected.", events[1].Payload.(VisitorStatusEvent).Message)
}

func TestApproveVisitor_RepeatIsNoop(t *testing.T) {
	f := newVisitorFixture()
	v := f.submit(t)

	_, err := f.service.Approve(context.Background(), v.ID)
	require.NoError(t, err)

	again, err := f.service.Approve(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusApproved, again.Status)

	// one newVisitorRequest plus a single status update
	assert.Len(t, f.broadcaster.Events(), 2)
}

func TestApproveThenReject(t *testing.T) {
	f := newVisitorFixture()
	v := f.submit(t)

	_, err := f.service.Approve(context.Background(), v.ID)
	require.NoError(t, err)

	_, err = f.service.Reject(context.Background(), v.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := f.store.GetByID(context.Background(), v.ID)
	assert.Equal(t, models.VisitorStatusApproved, stored.Status)
	assert.Len(t, f.broadcaster.Events(), 2)
}

func TestApproveVisitor_UnknownID(t *testing.T) {
	f := newVisitorFixture()

	_, err := f.service.Approve(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.broadcaster.Events())
}

func TestConcurrentDecisions(t *testing.T) {
	f := newVisitorFixture()
	v := f.submit(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.service.Approve(context.Background(), v.ID)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.service.Reject(context.Background(), v.ID)
	}()
	wg.Wait()

	statusUpdates := 0
	for _, e := range f.broadcaster.Events() {
		if e.Name == EventVisitorStatusUpdate {
			statusUpdates++
		}
	}
	assert.Equal(t, 1, statusUpdates)
}

func TestListPending(t *testing.T) {
	f := newVisitorFixture()
	v := f.submit(t)
	other := f.submit(t)
	_, err := f.service.Reject(context.Background(), other.ID)
	require.NoError(t, err)

	pending, err := f.service.ListPending(context.Background(), "A101")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, v.ID, pending[0].ID)

	_, err = f.service.ListPending(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingField)
}
