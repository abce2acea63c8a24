package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/redmonkez12/go-auth-verify/internal/logging"
	"github.com/redmonkez12/go-auth-verify/internal/session"
	"github.com/redmonkez12/go-auth-verify/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware resolves the session cookie into the current user.
type Middleware struct {
	sessions SessionManager
	users    UserStore
}

func NewMiddleware(sessions SessionManager, users UserStore) *Middleware {
	return &Middleware{sessions: sessions, users: users}
}

// LoadSession validates the session cookie on every request. Requests
// without a cookie pass through anonymously. An invalid session gets a blank
// cookie appended, and a session that was extended gets a refreshed one.
func (m *Middleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.GetLoggerFromContext(ctx)

		claims, err := m.sessions.ReadSessionToken(r)
		if errors.Is(err, session.ErrNoCookie) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			http.SetCookie(w, m.sessions.BlankSessionCookie())
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.sessions.ValidateSession(ctx, claims.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionNotFound) {
				http.SetCookie(w, m.sessions.BlankSessionCookie())
			} else {
				logger.Error("failed to validate session", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		if sess.UserID != claims.UserID {
			logger.Warn("session cookie bound to a different user", "user_id", claims.UserID)
			http.SetCookie(w, m.sessions.BlankSessionCookie())
			next.ServeHTTP(w, r)
			return
		}

		currentUser, err := m.users.GetByID(ctx, sess.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				if err := m.sessions.InvalidateSession(ctx, sess.ID); err != nil {
					logger.Error("failed to invalidate orphaned session", "error", err)
				}
				http.SetCookie(w, m.sessions.BlankSessionCookie())
			} else {
				logger.Error("failed to load session user", "user_id", sess.UserID, "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		if sess.Fresh {
			cookie, err := m.sessions.SessionCookie(sess)
			if err != nil {
				logger.Error("failed to refresh session cookie", "error", err)
			} else {
				http.SetCookie(w, cookie)
			}
		}

		ctx = WithSession(ctx, sess, currentUser)
		ctx = logging.WithLogger(ctx, logger.WithFields(map[string]any{"user_id": currentUser.ID}))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser responds 404 with an empty body when no user is signed in.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserFromContext(r.Context()); !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession stores the validated session and its user in ctx.
func WithSession(ctx context.Context, sess *session.Session, u *user.User) context.Context {
	ctx = context.WithValue(ctx, SessionContextKey, sess)
	return context.WithValue(ctx, UserContextKey, u)
}

// GetUserFromContext extracts the signed-in user from the request context
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok && u != nil
}

// GetSessionFromContext extracts the current session from the request context
func GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*session.Session)
	return s, ok && s != nil
}
