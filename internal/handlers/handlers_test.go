package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarthive/community-backend/internal/middleware"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// setupAuthenticatedContext creates a Gin context as AuthMiddleware would leave it
func setupAuthenticatedContext(userCtx middleware.UserContext) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.UserContextKey, userCtx)
	return c, w
}

func resident(flat string) middleware.UserContext {
	return middleware.UserContext{
		UserID:     uuid.New(),
		Username:   "resident-" + flat,
		FlatNumber: flat,
		Role:       "resident",
	}
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type auditEntry struct {
	kind    string
	actor   string
	subject uuid.UUID
	status  string
	success bool
	reason  string
}

// recordingAuditor keeps every audit call in memory
type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (a *recordingAuditor) add(e auditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return a.err
}

func (a *recordingAuditor) LogLogin(_ context.Context, actorID, username, _, _ string, success bool, reason string) error {
	return a.add(auditEntry{kind: "login", actor: actorID, status: username, success: success, reason: reason})
}

func (a *recordingAuditor) LogBooking(_ context.Context, userID, bookingID uuid.UUID, amenity, _ string, _, _ time.Time, _, _ string) error {
	return a.add(auditEntry{kind: "booking", actor: userID.String(), subject: bookingID, status: amenity})
}

func (a *recordingAuditor) LogVisitorDecision(_ context.Context, actorID string, visitorID uuid.UUID, status, _, _ string) error {
	return a.add(auditEntry{kind: "visitor", actor: actorID, subject: visitorID, status: status})
}

func (a *recordingAuditor) LogUserDecision(_ context.Context, userID uuid.UUID, status, _, _ string) error {
	return a.add(auditEntry{kind: "user", subject: userID, status: status})
}

func (a *recordingAuditor) all() []auditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]auditEntry(nil), a.entries...)
}
