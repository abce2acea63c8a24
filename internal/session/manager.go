// Package session issues, validates and revokes opaque sessions bound to a
// user id and transports them in a sealed cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCookieName = "auth_session"
	DefaultDuration   = 30 * 24 * time.Hour
)

var ErrNoCookie = errors.New("no session cookie")

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Session is an active login. Fresh is set when the session was created or
// extended by the current call, which means the cookie must be reissued.
type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
	Fresh     bool
}

type Config struct {
	CookieName string
	Duration   time.Duration
	Secure     bool
}

type Manager struct {
	store      Store
	tokens     TokenService
	cookieName string
	duration   time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(store Store, tokens TokenService, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	return &Manager{
		store:      store,
		tokens:     tokens,
		cookieName: cfg.CookieName,
		duration:   cfg.Duration,
		secure:     cfg.Secure,
		now:        time.Now,
	}
}

// generateSessionID returns 40 lowercase base32 characters (200 bits).
func generateSessionID() (string, error) {
	b := make([]byte, 25)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return strings.ToLower(idEncoding.EncodeToString(b)), nil
}

func (m *Manager) CreateSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.duration).Truncate(time.Second).UTC(),
		Fresh:     true,
	}
	if err := m.store.Save(ctx, s, s.ExpiresAt.Sub(m.now())); err != nil {
		return nil, err
	}

	return s, nil
}

// ValidateSession returns ErrSessionNotFound for unknown or expired sessions.
// Sessions past half their lifetime are extended to a full duration and
// returned with Fresh set.
func (m *Manager) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if !now.Before(s.ExpiresAt) {
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	if now.After(s.ExpiresAt.Add(-m.duration / 2)) {
		s.ExpiresAt = now.Add(m.duration).Truncate(time.Second).UTC()
		if err := m.store.Save(ctx, s, s.ExpiresAt.Sub(now)); err != nil {
			return nil, err
		}
		s.Fresh = true
	}

	return s, nil
}

func (m *Manager) InvalidateSession(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

func (m *Manager) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	return m.store.DeleteByUser(ctx, userID)
}

// SessionCookie seals the session into a cookie that expires with it.
func (m *Manager) SessionCookie(s *Session) (*http.Cookie, error) {
	token, err := m.tokens.CreateToken(Claims{
		SessionID: s.ID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	maxAge := int(s.ExpiresAt.Sub(m.now()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// BlankSessionCookie clears the session cookie in the browser.
func (m *Manager) BlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ReadSessionToken opens the session cookie on r. It returns ErrNoCookie when
// the request carries none and ErrInvalidToken when the value does not open.
func (m *Manager) ReadSessionToken(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoCookie
	}

	claims, err := m.tokens.VerifyToken(cookie.Value)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}
