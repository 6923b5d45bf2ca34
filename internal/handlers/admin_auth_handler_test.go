package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConsole struct {
	decided uuid.UUID
	action  string
	pending []models.User
	err     error
}

func (f *fakeConsole) Login(_ context.Context, username, password string) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{Token: "admin-token", ExpiresIn: 3600}, nil
}

func (f *fakeConsole) ListPendingUsers(context.Context) ([]models.User, error) {
	return f.pending, f.err
}

func (f *fakeConsole) DecideUser(_ context.Context, userID uuid.UUID, action string) (*models.User, error) {
	f.decided = userID
	f.action = action
	if f.err != nil {
		return nil, f.err
	}
	status := models.UserStatusApproved
	if action == "decline" {
		status = models.UserStatusDeclined
	}
	return &models.User{ID: userID, Status: status}, nil
}

func admin() middleware.UserContext {
	return middleware.UserContext{Username: "admin", Role: models.RoleAdmin}
}

func TestAdminLogin(t *testing.T) {
	auditor := &recordingAuditor{}
	h := NewAdminAuthHandler(&fakeConsole{}, auditor, testLogger())

	c, w := setupAuthenticatedContext(admin())
	c.Request = jsonRequest(t, http.MethodPost, "/api/admin/login", models.LoginRequest{Username: "admin", Password: "pw"})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-token", decodeBody(t, w)["token"])
	entries := auditor.all()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].success)
	assert.Equal(t, models.RoleAdmin, entries[0].actor)
}

func TestAdminLogin_WrongCredentials(t *testing.T) {
	auditor := &recordingAuditor{}
	h := NewAdminAuthHandler(&fakeConsole{err: services.ErrInvalidCredentials}, auditor, testLogger())

	c, w := setupAuthenticatedContext(admin())
	c.Request = jsonRequest(t, http.MethodPost, "/api/admin/login", models.LoginRequest{Username: "admin", Password: "guess"})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	entries := auditor.all()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].success)
	assert.Equal(t, "invalid_admin_credentials", entries[0].reason)
}

func TestPendingUsers(t *testing.T) {
	console := &fakeConsole{pending: []models.User{{ID: uuid.New(), Username: "nimal", Status: models.UserStatusPending}}}
	h := NewAdminAuthHandler(console, nil, testLogger())

	c, w := setupAuthenticatedContext(admin())
	c.Request = jsonRequest(t, http.MethodGet, "/api/admin/pending-users", nil)

	h.PendingUsers(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"nimal"`)
}

func TestDecideUser(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"approve", models.UserDecisionRequest{UserID: userID.String(), Action: "approve"}, nil, http.StatusOK, "User approved successfully"},
		{"decline", models.UserDecisionRequest{UserID: userID.String(), Action: "decline"}, nil, http.StatusOK, "User declined successfully"},
		{"unknown action", map[string]string{"userId": userID.String(), "action": "ban"}, nil, http.StatusBadRequest, ""},
		{"malformed id", models.UserDecisionRequest{UserID: "42", Action: "approve"}, nil, http.StatusBadRequest, ""},
		{"missing user", models.UserDecisionRequest{UserID: userID.String(), Action: "approve"}, services.ErrUserNotFound, http.StatusNotFound, ""},
		{"already decided", models.UserDecisionRequest{UserID: userID.String(), Action: "decline"}, services.ErrInvalidTransition, http.StatusConflict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &fakeConsole{err: tt.err}
			auditor := &recordingAuditor{}
			h := NewAdminAuthHandler(console, auditor, testLogger())

			c, w := setupAuthenticatedContext(admin())
			c.Request = jsonRequest(t, http.MethodPost, "/api/admin/approve-user", tt.body)

			h.DecideUser(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMsg == "" {
				assert.Empty(t, auditor.all())
				return
			}
			assert.Equal(t, userID, console.decided)
			assert.Equal(t, tt.wantMsg, decodeBody(t, w)["message"])
			require.Len(t, auditor.all(), 1)
		})
	}
}

type stubAuditReader struct {
	limit int
}

func (s *stubAuditReader) Recent(_ context.Context, limit int) ([]models.AuditLog, error) {
	s.limit = limit
	return []models.AuditLog{{ID: 1, Action: "login_success"}}, nil
}

func TestAuditLogList(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		limit  int
	}{
		{"default limit", "", http.StatusOK, 100},
		{"explicit limit", "?limit=20", http.StatusOK, 20},
		{"bad limit", "?limit=lots", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &stubAuditReader{}
			h := NewAuditLogHandler(reader, testLogger())

			c, w := setupAuthenticatedContext(admin())
			c.Request = jsonRequest(t, http.MethodGet, "/api/admin/audit-logs"+tt.query, nil)

			h.List(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.limit, reader.limit)
		})
	}
}
