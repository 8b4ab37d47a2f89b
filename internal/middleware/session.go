// Package middleware provides session, rate limiting, logging and tracing middleware.
package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LoginURL is where anonymous visitors of protected pages are sent.
const LoginURL = "/accounts/login/"

const (
	localsUser = "user"
	localsJTI  = "sessionJTI"
	localsExp  = "sessionExp"
)

// SessionRevoker remembers logged-out session ids until they expire.
type SessionRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// UserLoader fetches the account a session belongs to.
type UserLoader func(ctx context.Context, id uint) (*models.User, error)

// SessionClaims are carried by the session cookie. PasswordVersion ties the
// session to the password hash it was issued under.
type SessionClaims struct {
	PasswordVersion string `json:"pv"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates signed session cookies.
type SessionManager struct {
	key        []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	revoker    SessionRevoker
	now        func() time.Time
}

// NewSessionManager returns a manager. revoker may be nil, in which case
// logout only clears the cookie.
func NewSessionManager(secret, cookieName string, ttl time.Duration, secure bool, revoker SessionRevoker) *SessionManager {
	sum := sha256.Sum256([]byte("bboard.session" + secret))
	return &SessionManager{
		key:        sum[:],
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		revoker:    revoker,
		now:        time.Now,
	}
}

// PasswordVersion fingerprints a password hash. Changing the password
// invalidates every session issued before.
func PasswordVersion(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// Issue starts a session for u and stores it in the response cookie.
func (m *SessionManager) Issue(c *fiber.Ctx, u *models.User) error {
	now := m.now()
	claims := SessionClaims{
		PasswordVersion: PasswordVersion(u.Password),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	setUser(c, u)
	c.Locals(localsJTI, claims.ID)
	c.Locals(localsExp, claims.ExpiresAt.Time)
	return nil
}

func (m *SessionManager) parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("session token is missing its id or subject")
	}
	return claims, nil
}

// Clear ends the current session: its id is revoked and the cookie dropped.
func (m *SessionManager) Clear(c *fiber.Ctx) error {
	var err error
	if jti, ok := c.Locals(localsJTI).(string); ok && m.revoker != nil {
		ttl := m.ttl
		if exp, ok := c.Locals(localsExp).(time.Time); ok {
			ttl = exp.Sub(m.now())
		}
		err = m.revoker.Revoke(c.UserContext(), jti, ttl)
	}
	m.expireCookie(c)
	c.Locals(localsUser, nil)
	c.Locals("userID", nil)
	c.Locals(localsJTI, nil)
	return err
}

func (m *SessionManager) expireCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Load attaches the session user to the request when the cookie is valid.
// Invalid, revoked or stale sessions leave the request anonymous.
func (m *SessionManager) Load(users UserLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(m.cookieName)
		if token == "" {
			return c.Next()
		}
		ctx := c.UserContext()

		claims, err := m.parse(token)
		if err != nil {
			m.expireCookie(c)
			return c.Next()
		}

		if m.revoker != nil {
			revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
			if err != nil {
				Logger.WarnContext(ctx, "session revocation check failed", "error", err)
				return c.Next()
			}
			if revoked {
				m.expireCookie(c)
				return c.Next()
			}
		}

		id, err := strconv.ParseUint(claims.Subject, 10, 32)
		if err != nil {
			m.expireCookie(c)
			return c.Next()
		}
		user, err := users(ctx, uint(id))
		if err != nil {
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != models.CodeNotFound {
				Logger.ErrorContext(ctx, "failed to load session user", "user_id", id, "error", err)
			}
			return c.Next()
		}
		if !user.IsActive || PasswordVersion(user.Password) != claims.PasswordVersion {
			m.expireCookie(c)
			return c.Next()
		}

		setUser(c, user)
		c.Locals(localsJTI, claims.ID)
		c.Locals(localsExp, claims.ExpiresAt.Time)
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, u *models.User) {
	c.Locals(localsUser, u)
	c.Locals("userID", u.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, u.ID))
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localsUser).(*models.User)
	return u
}

// AuthRequired redirects anonymous visitors to the login page, remembering
// where they were going.
func AuthRequired(c *fiber.Ctx) error {
	if CurrentUser(c) != nil {
		return c.Next()
	}
	return c.Redirect(LoginURL+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
}

// SafeNext returns next when it is a local path and fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return next
}
