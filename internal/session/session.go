// Package session issues and verifies login sessions carried in a signed cookie.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"quill/internal/cache"
	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName is the session cookie.
	CookieName = "sessionid"
	issuer     = "quill"
	audience   = "quill-web"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrRevoked        = errors.New("session revoked")
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID       uint
	Username     string
	ID           string
	PasswordHash string
	ExpiresAt    time.Time
}

type tokenClaims struct {
	Username     string `json:"username"`
	PasswordHash string `json:"pwh"`
	jwt.RegisteredClaims
}

// Manager signs session tokens and tracks revoked ones in Redis.
type Manager struct {
	secret []byte
	ttl    time.Duration
	store  *cache.Store
	secure bool
	now    func() time.Time
}

// NewManager returns a Manager. store may be disabled, in which case logout only clears the cookie.
func NewManager(secret string, ttl time.Duration, store *cache.Store, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		store:  store,
		secure: secure,
		now:    time.Now,
	}
}

// Issue creates a signed token for user.
func (m *Manager) Issue(user *models.User) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("session secret not configured")
	}

	now := m.now()
	exp := now.Add(m.ttl)
	claims := tokenClaims{
		Username:     user.Username,
		PasswordHash: m.passwordFingerprint(user.Password),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateJTI(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}

// passwordFingerprint ties a session to the password it was issued under, so changing the
// password ends every other session.
func (m *Manager) passwordFingerprint(hash string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(hash))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// Parse verifies the token signature, registered claims and the revocation list. When the
// revocation list cannot be read the token is accepted.
func (m *Manager) Parse(ctx context.Context, token string) (*Claims, error) {
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := strconv.ParseUint(tc.Subject, 10, 64)
	if err != nil || userID == 0 {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	if tc.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidSession)
	}

	// An unreachable blacklist does not log everyone out; the signature and expiry still hold.
	revoked, err := m.store.Exists(ctx, cache.BlacklistKey(tc.ID))
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Session revocation check skipped", "jti", tc.ID, "error", err)
		revoked = false
	}
	if revoked {
		return nil, ErrRevoked
	}

	return &Claims{
		UserID:       uint(userID),
		Username:     tc.Username,
		ID:           tc.ID,
		PasswordHash: tc.PasswordHash,
		ExpiresAt:    tc.ExpiresAt.Time,
	}, nil
}

// Matches reports whether claims were issued for the user's current password.
func (m *Manager) Matches(claims *Claims, user *models.User) bool {
	return hmac.Equal([]byte(claims.PasswordHash), []byte(m.passwordFingerprint(user.Password)))
}

// Revoke blacklists the token id until it would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return m.store.SetBytes(ctx, cache.BlacklistKey(claims.ID), []byte("1"), ttl)
}

// Login issues a session for user and sets the cookie.
func (m *Manager) Login(c *fiber.Ctx, user *models.User) error {
	token, exp, err := m.Issue(user)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

// Logout revokes the current session, if any, and clears the cookie.
func (m *Manager) Logout(c *fiber.Ctx) error {
	var err error
	if token := c.Cookies(CookieName); token != "" {
		if claims, parseErr := m.Parse(c.UserContext(), token); parseErr == nil {
			err = m.Revoke(c.UserContext(), claims)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return err
}
