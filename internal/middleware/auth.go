package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go-api/internal/auth"

	"go.uber.org/zap"
)

// TokenVersionChecker tells whether tokens of a given version are still
// valid for a user. Bumping a user's version revokes every issued token.
type TokenVersionChecker interface {
	CheckTokenVersion(ctx context.Context, userID string, tokenVersion int) (bool, error)
}

type AuthMiddleware struct {
	jwt      *auth.JWTManager
	versions TokenVersionChecker
	logr     *zap.Logger
}

type contextKey string

const contextClaimsKey contextKey = "claims"

func NewAuthMiddleware(jwt *auth.JWTManager, versions TokenVersionChecker, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, versions: versions, logr: logr}
}

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, c)
}

// ClaimsFromContext returns the caller's verified claims, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(contextClaimsKey).(*auth.Claims)
	return c, ok && c != nil
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// authenticate verifies the bearer token. A nil result with a zero status
// means no token was sent.
func (m *AuthMiddleware) authenticate(r *http.Request) (*auth.Claims, int, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, 0, ""
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return nil, http.StatusUnauthorized, "Invalid token header."
	}

	claims, err := m.jwt.Verify(token)
	if err != nil {
		m.logr.Debug("token rejected", zap.Error(err))
		return nil, http.StatusUnauthorized, "Given token not valid for any token type"
	}
	if claims.Kind != auth.AccessToken {
		return nil, http.StatusUnauthorized, "Given token not valid for any token type"
	}

	valid, err := m.versions.CheckTokenVersion(r.Context(), claims.UserID, claims.TokenVersion)
	if err != nil {
		m.logr.Error("failed checking token version", zap.Error(err), zap.String("user_id", claims.UserID))
		return nil, http.StatusInternalServerError, "Internal server error"
	}
	if !valid {
		return nil, http.StatusUnauthorized, "Token has been revoked."
	}
	return claims, http.StatusOK, ""
}

// JWTAuth requires a valid access token.
func (m *AuthMiddleware) JWTAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, status, detail := m.authenticate(r)
		switch {
		case status == 0:
			unauthorized(w, "Authentication credentials were not provided.")
			return
		case status == http.StatusInternalServerError:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
			return
		case status != http.StatusOK:
			unauthorized(w, detail)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// OptionalAuth attaches claims when a valid token is sent and lets
// anonymous requests through. A bad token is still rejected.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, status, detail := m.authenticate(r)
		if status == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if status != http.StatusOK {
			unauthorized(w, detail)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireRole lets through callers holding role. It must run after JWTAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w, "Authentication credentials were not provided.")
				return
			}
			if !claims.HasRole(role) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "You do not have permission to perform this action."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
