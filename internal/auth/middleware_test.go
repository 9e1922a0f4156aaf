package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/keystone/internal/auth"
	"github.com/BradenHooton/keystone/internal/models"
	pkghttp "github.com/BradenHooton/keystone/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedHandler(tm *auth.TokenManager) (http.Handler, *models.TokenClaims) {
	var seen models.TokenClaims
	h := auth.Middleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := auth.GetUserFromContext(r); claims != nil {
			seen = *claims
		}
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestMiddleware_ValidToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-32-characters-long!!", time.Hour, 24*time.Hour)
	token, _, err := tm.Issue(models.UserPayload{IDUserAccount: 9, Name: "Ada", Email: "ada@example.com"}, false)
	require.NoError(t, err)

	handler, seen := newProtectedHandler(tm)
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(9), seen.IDUserAccount)
	assert.Equal(t, "ada@example.com", seen.Email)
}

func TestMiddleware_Rejects(t *testing.T) {
	tm := auth.NewTokenManager("test-secret-32-characters-long!!", time.Hour, 24*time.Hour)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"no token", "Bearer "},
		{"garbage token", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newProtectedHandler(tm)
			req := httptest.NewRequest(http.MethodGet, "/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, 401, resp.Error.Code)
		})
	}
}

func TestGetUserFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, auth.GetUserFromContext(req))
}
