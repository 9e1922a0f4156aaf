package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/keystone/internal/auth"
	"github.com/BradenHooton/keystone/internal/models"
	pkghttp "github.com/BradenHooton/keystone/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds token claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, payload models.UserPayload) *http.Request {
	claims := &models.TokenClaims{UserPayload: payload}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertSuccessResponse checks the status and decodes the envelope's data into target
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Success  bool                   `json:"success"`
		Data     json.RawMessage        `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if !assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode response JSON") {
		return
	}
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Metadata["timestamp"], "metadata.timestamp should be set")

	if target != nil {
		assert.NoError(t, json.Unmarshal(resp.Data, target), "Failed to decode response data")
	}
}

// AssertErrorResponse checks that response is a valid error envelope and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.False(t, resp.Success)
	assert.Equal(t, expectedStatus, resp.Error.Code, "Error code should mirror status")
	assert.Equal(t, expectedMessage, resp.Error.Message, "Error message mismatch")
	assert.NotEmpty(t, resp.Timestamp)
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	AuthenticateFunc func(ctx context.Context, attempt models.LoginAttempt) (*models.Outcome, error)

	Attempts []models.LoginAttempt
}

func (m *MockAuthService) Authenticate(ctx context.Context, attempt models.LoginAttempt) (*models.Outcome, error) {
	m.Attempts = append(m.Attempts, attempt)
	if m.AuthenticateFunc == nil {
		return models.InvalidCredentials(), nil
	}
	return m.AuthenticateFunc(ctx, attempt)
}

// newTestAuthHandler wires a handler with no trusted proxies and discarded logs
func newTestAuthHandler(service AuthServiceInterface) *AuthHandler {
	return NewAuthHandler(service, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}
