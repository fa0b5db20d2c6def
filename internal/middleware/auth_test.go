package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-api/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVersions struct {
	version int
	err     error
}

func (f fakeVersions) CheckTokenVersion(_ context.Context, _ string, v int) (bool, error) {
	return v == f.version, f.err
}

func newManager(t *testing.T) *auth.JWTManager {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return auth.NewJWTManagerFromKeys(key, &key.PublicKey, "go-api-test")
}

func echoClaims(w http.ResponseWriter, r *http.Request) {
	if c, ok := ClaimsFromContext(r.Context()); ok {
		_, _ = w.Write([]byte(c.UserID))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
}

func TestJWTAuth(t *testing.T) {
	jwtMgr := newManager(t)
	pair, err := jwtMgr.GenerateTokenPair("user-1", time.Minute, time.Hour, 3, "local", []string{"user"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		versions fakeVersions
		status   int
	}{
		{"missing", "", fakeVersions{version: 3}, http.StatusUnauthorized},
		{"not bearer", "Basic abc", fakeVersions{version: 3}, http.StatusUnauthorized},
		{"garbage", "Bearer abc", fakeVersions{version: 3}, http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, fakeVersions{version: 3}, http.StatusUnauthorized},
		{"revoked", "Bearer " + pair.AccessToken, fakeVersions{version: 4}, http.StatusUnauthorized},
		{"store down", "Bearer " + pair.AccessToken, fakeVersions{err: errors.New("db down")}, http.StatusInternalServerError},
		{"valid", "Bearer " + pair.AccessToken, fakeVersions{version: 3}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(jwtMgr, tt.versions, zap.NewNop())
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.JWTAuth(http.HandlerFunc(echoClaims)).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user-1", rec.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtMgr := newManager(t)
	mw := NewAuthMiddleware(jwtMgr, fakeVersions{version: 0}, zap.NewNop())
	h := mw.OptionalAuth(http.HandlerFunc(echoClaims))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("admin")(http.HandlerFunc(echoClaims))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: "u", Roles: []string{"user"}}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: "admin-1", Roles: []string{"user", "admin"}}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())
}
