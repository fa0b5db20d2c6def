package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-api/internal/auth"
	"go-api/internal/services"

	"go.uber.org/zap"
)

type Authenticator interface {
	LoginLocal(ctx context.Context, email, password, deviceInfo string) (*auth.TokenPair, *services.UserInfo, error)
	LoginLDAP(ctx context.Context, username, password, deviceInfo string) (*auth.TokenPair, *services.UserInfo, error)
	Refresh(ctx context.Context, refreshToken string, deviceInfo string) (*auth.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type AuthHandler struct {
	responder
	authSvc      Authenticator
	secureCookie bool
}

func NewAuthHandler(svc Authenticator, logr *zap.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{responder: responder{logr: logr}, authSvc: svc, secureCookie: secureCookie}
}

const refreshCookie = "refresh_token"

type loginReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}

type ldapReq struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}

type tokenResp struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	ExpiresAt    time.Time          `json:"access_expires_at"`
	User         *services.UserInfo `json:"user,omitempty"`
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.logr.Warn(msg, append(fields, zap.Error(err))...)
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	h.fail(w, r, msg, err)
}

func (h *AuthHandler) issue(w http.ResponseWriter, pair *auth.TokenPair, user *services.UserInfo) {
	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExp)
	writeJSON(w, http.StatusOK, tokenResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExp,
		User:         user,
	})
}

// POST /auth/login
func (h *AuthHandler) LoginLocal(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, user, err := h.authSvc.LoginLocal(r.Context(), req.Email, req.Password, req.DeviceInfo)
	if err != nil {
		h.loginFailed(w, r, "local login failed", err, zap.String("email", req.Email))
		return
	}
	h.issue(w, pair, user)
}

// POST /auth/ldap
func (h *AuthHandler) LoginLDAP(w http.ResponseWriter, r *http.Request) {
	var req ldapReq
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, user, err := h.authSvc.LoginLDAP(r.Context(), req.Username, req.Password, req.DeviceInfo)
	if err != nil {
		h.loginFailed(w, r, "ldap login failed", err, zap.String("username", req.Username))
		return
	}
	h.issue(w, pair, user)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	DeviceInfo   string `json:"device_info,omitempty"`
}

// presentedRefresh reads the refresh token from the cookie, falling back to
// the body.
func presentedRefresh(r *http.Request) refreshReq {
	var req refreshReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	if cookie, err := r.Cookie(refreshCookie); err == nil && cookie.Value != "" {
		req.RefreshToken = cookie.Value
	}
	return req
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	req := presentedRefresh(r)
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh_token": {"This field is required."}})
		return
	}

	pair, err := h.authSvc.Refresh(r.Context(), req.RefreshToken, req.DeviceInfo)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefresh) {
			h.logr.Warn("refresh failed", zap.Error(err))
			writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		h.fail(w, r, "refresh failed", err)
		return
	}
	h.issue(w, pair, nil)
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	req := presentedRefresh(r)
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh_token": {"This field is required."}})
		return
	}

	if err := h.authSvc.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}
		h.fail(w, r, "logout failed", err)
		return
	}

	h.setRefreshCookie(w, "", time.Unix(0, 0))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
}
