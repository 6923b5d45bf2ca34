package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/smarthive/community-backend/internal/models"
	"github.com/smarthive/community-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	registered *models.RegisterUserRequest
	profileOf  uuid.UUID
	updated    *models.UpdateProfileRequest
	login      *models.LoginResponse
	user       *models.User
	err        error
}

func (f *fakeAccounts) Register(_ context.Context, req models.RegisterUserRequest) (*models.User, error) {
	f.registered = &req
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: uuid.New(), Username: req.Username, FlatNumber: req.FlatNumber, Status: models.UserStatusPending}, nil
}

func (f *fakeAccounts) Login(context.Context, string, string) (*models.LoginResponse, error) {
	return f.login, f.err
}

func (f *fakeAccounts) Refresh(context.Context, string) (*models.LoginResponse, error) {
	return f.login, f.err
}

func (f *fakeAccounts) GetProfile(_ context.Context, userID uuid.UUID) (*models.User, error) {
	f.profileOf = userID
	return f.user, f.err
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	f.profileOf = userID
	f.updated = &req
	return f.user, f.err
}

func TestRegister_Created(t *testing.T) {
	accounts := &fakeAccounts{}
	h := NewAuthHandler(accounts, nil, testLogger())

	c, w := setupAuthenticatedContext(resident("A101"))
	c.Request = jsonRequest(t, http.MethodPost, "/api/users/register", models.RegisterUserRequest{
		Username:    "nimal",
		Email:       "nimal@example.com",
		Password:    "secret123",
		FlatNumber:  "A101",
		PhoneNumber: "0771234567",
	})

	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, accounts.registered)
	assert.Equal(t, "nimal", accounts.registered.Username)

	body := decodeBody(t, w)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "pending", user["status"])
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		err    error
		status int
	}{
		{"bad email", map[string]string{"username": "n", "email": "nope", "password": "secret123", "flatNumber": "A101", "phoneNumber": "0771234567"}, nil, http.StatusBadRequest},
		{"short password", map[string]string{"username": "n", "email": "n@example.com", "password": "123", "flatNumber": "A101", "phoneNumber": "0771234567"}, nil, http.StatusBadRequest},
		{"unknown flat", models.RegisterUserRequest{Username: "n", Email: "n@example.com", Password: "secret123", FlatNumber: "Z999", PhoneNumber: "0771234567"}, &services.FieldError{Field: "flatNumber", Err: services.ErrInvalidFlat}, http.StatusBadRequest},
		{"taken", models.RegisterUserRequest{Username: "n", Email: "n@example.com", Password: "secret123", FlatNumber: "A101", PhoneNumber: "0771234567"}, services.ErrDuplicate, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&fakeAccounts{err: tt.err}, nil, testLogger())

			c, w := setupAuthenticatedContext(resident("A101"))
			c.Request = jsonRequest(t, http.MethodPost, "/api/users/register", tt.body)

			h.Register(c)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLogin_AuditsOutcome(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		accounts   *fakeAccounts
		wantStatus int
		success    bool
		reason     string
	}{
		{
			name:       "success",
			accounts:   &fakeAccounts{login: &models.LoginResponse{Token: "access", User: &models.User{ID: userID}}},
			wantStatus: http.StatusOK,
			success:    true,
		},
		{
			name:       "wrong password",
			accounts:   &fakeAccounts{err: services.ErrInvalidCredentials},
			wantStatus: http.StatusUnauthorized,
			reason:     "invalid_credentials",
		},
		{
			name:       "pending account",
			accounts:   &fakeAccounts{err: services.ErrNotApproved},
			wantStatus: http.StatusForbidden,
			reason:     "not_approved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := &recordingAuditor{}
			h := NewAuthHandler(tt.accounts, auditor, testLogger())

			c, w := setupAuthenticatedContext(resident("A101"))
			c.Request = jsonRequest(t, http.MethodPost, "/api/users/login", models.LoginRequest{Username: "nimal", Password: "secret123"})

			h.Login(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			entries := auditor.all()
			require.Len(t, entries, 1)
			assert.Equal(t, "login", entries[0].kind)
			assert.Equal(t, tt.success, entries[0].success)
			assert.Equal(t, tt.reason, entries[0].reason)
			if tt.success {
				assert.Equal(t, userID.String(), entries[0].actor)
			}
		})
	}
}

func TestLogin_AuditFailureDoesNotFailRequest(t *testing.T) {
	auditor := &recordingAuditor{err: assert.AnError}
	accounts := &fakeAccounts{login: &models.LoginResponse{Token: "access", User: &models.User{ID: uuid.New()}}}
	h := NewAuthHandler(accounts, auditor, testLogger())

	c, w := setupAuthenticatedContext(resident("A101"))
	c.Request = jsonRequest(t, http.MethodPost, "/api/users/login", models.LoginRequest{Username: "nimal", Password: "secret123"})

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "access", decodeBody(t, w)["token"])
}

func TestRefreshToken_MissingBody(t *testing.T) {
	h := NewAuthHandler(&fakeAccounts{}, nil, testLogger())

	c, w := setupAuthenticatedContext(resident("A101"))
	c.Request = jsonRequest(t, http.MethodPost, "/api/users/refresh", map[string]string{})

	h.RefreshToken(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProfile_UsesTokenUser(t *testing.T) {
	caller := resident("A101")
	accounts := &fakeAccounts{user: &models.User{ID: caller.UserID, Username: caller.Username, FlatNumber: "A101"}}
	h := NewAuthHandler(accounts, nil, testLogger())

	c, w := setupAuthenticatedContext(caller)
	c.Request = jsonRequest(t, http.MethodGet, "/api/users/profile", nil)

	h.GetProfile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, caller.UserID, accounts.profileOf)
	body := decodeBody(t, w)
	assert.Equal(t, "A101", body["flatNumber"])
	assert.NotContains(t, body, "passwordHash")
}

func TestGetProfile_NotFound(t *testing.T) {
	h := NewAuthHandler(&fakeAccounts{err: services.ErrUserNotFound}, nil, testLogger())

	c, w := setupAuthenticatedContext(resident("A101"))
	c.Request = jsonRequest(t, http.MethodGet, "/api/users/profile", nil)

	h.GetProfile(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfile_IgnoresFlatNumber(t *testing.T) {
	caller := resident("A101")
	accounts := &fakeAccounts{user: &models.User{ID: caller.UserID, FlatNumber: "A101", Email: "new@example.com"}}
	h := NewAuthHandler(accounts, nil, testLogger())

	c, w := setupAuthenticatedContext(caller)
	c.Request = jsonRequest(t, http.MethodPut, "/api/users/profile", map[string]string{
		"email":      "new@example.com",
		"flatNumber": "B202",
	})

	h.UpdateProfile(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, accounts.updated)
	assert.Equal(t, "new@example.com", accounts.updated.Email)
	user := decodeBody(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "A101", user["flatNumber"])
}
