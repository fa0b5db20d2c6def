package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go-api/internal/auth"
	"go-api/internal/config"
	"go-api/internal/models"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// maxSessions is the number of live refresh tokens a user may hold.
const maxSessions = 2

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
)

type AuthService struct {
	db   *bun.DB
	jwt  *auth.JWTManager
	cfg  *config.Config
	logr *zap.Logger
}

func NewAuthService(db *bun.DB, jwt *auth.JWTManager, cfg *config.Config, logr *zap.Logger) *AuthService {
	return &AuthService{db: db, jwt: jwt, cfg: cfg, logr: logr}
}

// HashPassword uses bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

func ComparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Provider string   `json:"provider"`
	Roles    []string `json:"roles"`
}

func userInfo(u *models.User, provider string) *UserInfo {
	return &UserInfo{
		ID:       u.ID.String(),
		Email:    u.Email,
		Name:     u.Name,
		Provider: provider,
		Roles:    u.Roles,
	}
}

// CreateUser provisions a local account.
func (s *AuthService) CreateUser(ctx context.Context, email, name, password string, roles []string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, FieldError("email", "This field is required.")
	}
	if len(password) < 8 {
		return nil, FieldError("password", "Ensure this field has at least 8 characters.")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}

	u := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     "local",
		Roles:        roles,
	}
	if _, err := s.db.NewInsert().Model(u).Returning("*").Exec(ctx); err != nil {
		return nil, constraintError(err, "email")
	}
	return u, nil
}

// LoginLocal checks an email/password pair and opens a session.
func (s *AuthService) LoginLocal(ctx context.Context, email, password, deviceInfo string) (*auth.TokenPair, *UserInfo, error) {
	var u models.User
	err := s.db.NewSelect().Model(&u).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if u.PasswordHash == "" {
		return nil, nil, fmt.Errorf("account not configured for local login")
	}
	if err := ComparePassword(u.PasswordHash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, &u, "local", deviceInfo)
	if err != nil {
		return nil, nil, err
	}
	return pair, userInfo(&u, "local"), nil
}

// ldapIdentity is what a directory bind tells us about a user.
type ldapIdentity struct {
	Email string
	Name  string
}

// LoginLDAP binds against the directory with the user's own credentials,
// provisions the account on first login and opens a session.
func (s *AuthService) LoginLDAP(ctx context.Context, username, password, deviceInfo string) (*auth.TokenPair, *UserInfo, error) {
	account := StripUPNSuffix(username, s.cfg.LDAPUPNSuffix)
	if account == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	id, err := s.ldapLookup(account, password)
	if err != nil {
		return nil, nil, err
	}

	var u models.User
	err = s.db.NewSelect().Model(&u).Where("email = ?", id.Email).Scan(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		u = models.User{
			Email:    id.Email,
			Provider: "ldap",
			Name:     id.Name,
			Roles:    []string{models.RoleUser},
		}
		if _, err := s.db.NewInsert().Model(&u).Returning("*").Exec(ctx); err != nil {
			s.logr.Error("failed to create user", zap.Error(err), zap.String("email", id.Email))
			return nil, nil, fmt.Errorf("failed to create user account")
		}
		s.logr.Info("created ldap user", zap.String("email", id.Email), zap.String("id", u.ID.String()))
	case err != nil:
		return nil, nil, err
	case u.Provider != "ldap":
		_, _ = s.db.NewUpdate().Model((*models.User)(nil)).Set("provider = ?", "ldap").Where("id = ?", u.ID).Exec(ctx)
	}

	pair, err := s.openSession(ctx, &u, "ldap", deviceInfo)
	if err != nil {
		return nil, nil, err
	}
	s.logr.Info("ldap login", zap.String("user_id", u.ID.String()), zap.String("username", account))
	return pair, userInfo(&u, "ldap"), nil
}

func (s *AuthService) ldapLookup(account, password string) (*ldapIdentity, error) {
	l, err := ldap.DialURL(s.cfg.LDAPServer, ldap.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}))
	if err != nil {
		s.logr.Error("ldap dial failed", zap.Error(err), zap.String("server", s.cfg.LDAPServer))
		return nil, fmt.Errorf("ldap connection failed")
	}
	defer l.Close()
	l.SetTimeout(30 * time.Second)

	if err := l.Bind(account+s.cfg.LDAPUPNSuffix, password); err != nil {
		s.logr.Warn("ldap bind failed", zap.String("username", account))
		return nil, ErrInvalidCredentials
	}

	req := ldap.NewSearchRequest(
		s.cfg.LDAPBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, 0, false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(account)),
		[]string{"cn", "givenName", "sn", "mail", "displayName"},
		nil,
	)
	sr, err := l.Search(req)
	if err != nil {
		s.logr.Error("ldap search failed", zap.Error(err), zap.String("username", account))
		return nil, fmt.Errorf("user lookup failed")
	}
	if len(sr.Entries) == 0 {
		return nil, fmt.Errorf("user not found in directory")
	}

	entry := sr.Entries[0]
	mail := strings.ToLower(entry.GetAttributeValue("mail"))
	if mail == "" {
		return nil, fmt.Errorf("user account missing email")
	}
	return &ldapIdentity{Email: mail, Name: DirectoryName(entry, account)}, nil
}

// StripUPNSuffix removes a trailing "@domain" suffix, case-insensitively.
func StripUPNSuffix(username, suffix string) string {
	username = strings.TrimSpace(username)
	if suffix != "" && len(username) >= len(suffix) && strings.EqualFold(username[len(username)-len(suffix):], suffix) {
		return username[:len(username)-len(suffix)]
	}
	return username
}

// DirectoryName picks the best display name an entry offers.
func DirectoryName(entry *ldap.Entry, fallback string) string {
	if v := entry.GetAttributeValue("displayName"); v != "" {
		return v
	}
	if v := entry.GetAttributeValue("cn"); v != "" {
		return v
	}
	if full := strings.TrimSpace(entry.GetAttributeValue("givenName") + " " + entry.GetAttributeValue("sn")); full != "" {
		return full
	}
	return fallback
}

func (s *AuthService) openSession(ctx context.Context, u *models.User, method, deviceInfo string) (*auth.TokenPair, error) {
	_, _ = s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("last_login_at = ?", time.Now().UTC()).
		Where("id = ?", u.ID).
		Exec(ctx)

	pair, err := s.jwt.GenerateTokenPair(u.ID.String(), s.cfg.AccessTokenTTL, s.cfg.RefreshTokenTTL, u.TokenVersion, method, u.Roles)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	if err := s.storeRefreshToken(ctx, u.ID, pair.RefreshToken, pair.RefreshExp, pair.JTI, deviceInfo); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return pair, nil
}

// storeRefreshToken stores the refresh token hashed, keeping at most
// maxSessions live tokens per user.
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time, jti string, deviceInfo string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.RefreshToken)(nil)).Where("user_id = ? AND expires_at < now()", userID).Exec(ctx); err != nil {
			return err
		}

		_, err := tx.NewDelete().
			Model((*models.RefreshToken)(nil)).
			Where(`id IN (
				SELECT id FROM refresh_tokens
				WHERE user_id = ? AND revoked = false AND expires_at > now()
				ORDER BY created_at DESC OFFSET ?)`, userID, maxSessions-1).
			Exec(ctx)
		if err != nil {
			return err
		}

		rt := models.RefreshToken{
			UserID:     userID,
			JTI:        jti,
			TokenHash:  auth.HashToken(refreshToken),
			DeviceInfo: &deviceInfo,
			CreatedAt:  time.Now().UTC(),
			ExpiresAt:  expiresAt,
		}
		_, err = tx.NewInsert().Model(&rt).Exec(ctx)
		return err
	})
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, deviceInfo string) (*auth.TokenPair, error) {
	claims, err := s.jwt.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	if claims.Kind != auth.RefreshToken {
		return nil, ErrInvalidRefresh
	}

	var rt models.RefreshToken
	err = s.db.NewSelect().
		Model(&rt).
		Where("jti = ? AND token_hash = ? AND revoked = false AND expires_at > now()", claims.JTI, auth.HashToken(refreshToken)).
		Scan(ctx)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	var u models.User
	if err := s.db.NewSelect().Model(&u).Where("id = ?", rt.UserID).Scan(ctx); err != nil {
		return nil, ErrInvalidRefresh
	}
	if u.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidRefresh
	}

	if _, err := s.db.NewUpdate().Model((*models.RefreshToken)(nil)).Set("revoked = true").Where("id = ?", rt.ID).Exec(ctx); err != nil {
		return nil, err
	}
	return s.openSession(ctx, &u, "refresh", deviceInfo)
}

// Logout revokes the refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.Verify(refreshToken)
	if err != nil {
		return err
	}
	_, err = s.db.NewUpdate().Model((*models.RefreshToken)(nil)).Set("revoked = true").Where("jti = ?", claims.JTI).Exec(ctx)
	return err
}

// CheckTokenVersion reports whether tokens carrying tokenVersion are still
// honoured for the user.
func (s *AuthService) CheckTokenVersion(ctx context.Context, userID string, tokenVersion int) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}
	var version int
	err = s.db.NewSelect().
		Model((*models.User)(nil)).
		Column("token_version").
		Where("id = ?", id).
		Scan(ctx, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return version == tokenVersion, nil
}
