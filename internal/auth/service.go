package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-verify/internal/email"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
	"github.com/redmonkez12/go-auth-verify/internal/session"
	"github.com/redmonkez12/go-auth-verify/internal/user"
	"github.com/redmonkez12/go-auth-verify/internal/verification"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
	ErrDeliveryFailed     = errors.New("verification email delivery failed")
)

// SessionManager issues, validates and revokes sessions and their cookies.
type SessionManager interface {
	CreateSession(ctx context.Context, userID uuid.UUID) (*session.Session, error)
	ValidateSession(ctx context.Context, sessionID string) (*session.Session, error)
	InvalidateSession(ctx context.Context, sessionID string) error
	InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error
	SessionCookie(s *session.Session) (*http.Cookie, error)
	BlankSessionCookie() *http.Cookie
	ReadSessionToken(r *http.Request) (*session.Claims, error)
}

// Service orchestrates signup, login, logout and email verification.
type Service struct {
	store           Store
	sessions        SessionManager
	hasher          PasswordHasher
	sender          email.Sender
	requireDelivery bool

	// dummyHash is verified against when the email is unknown so that both
	// login failures cost one hash derivation.
	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the orchestrator. With requireDelivery set, a failed
// verification email aborts the signup; otherwise the failure is logged and
// the signup proceeds.
func NewService(
	store Store,
	sessions SessionManager,
	hasher PasswordHasher,
	sender email.Sender,
	requireDelivery bool,
) *Service {
	return &Service{
		store:           store,
		sessions:        sessions,
		hasher:          hasher,
		sender:          sender,
		requireDelivery: requireDelivery,
	}
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unverified user, issues a verification code, sends it
// and opens a session. The user row and the code are written in one
// transaction; if the session cannot be created afterwards the user is
// removed again.
func (s *Service) Signup(ctx context.Context, emailAddr, password string) (*user.User, *session.Session, error) {
	logger := logging.GetLoggerFromContext(ctx)
	emailAddr = NormalizeEmail(emailAddr)

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var (
		newUser *user.User
		code    *verification.Code
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		u, err := tx.Users().Create(ctx, emailAddr, passwordHash)
		if err != nil {
			return err
		}

		c, err := tx.Codes().Issue(ctx, u.ID, u.Email)
		if err != nil {
			return fmt.Errorf("failed to issue verification code: %w", err)
		}

		if s.requireDelivery {
			if err := s.sender.SendVerificationCode(ctx, u.Email, c.Code, c.ExpiresAt); err != nil {
				return errors.Join(ErrDeliveryFailed, err)
			}
		}

		newUser, code = u, c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if !s.requireDelivery {
		if err := s.sender.SendVerificationCode(ctx, newUser.Email, code.Code, code.ExpiresAt); err != nil {
			logger.Warn("failed to send verification email", "user_id", newUser.ID, "error", err)
		}
	}

	sess, err := s.sessions.CreateSession(ctx, newUser.ID)
	if err != nil {
		if delErr := s.store.Users().Delete(ctx, newUser.ID); delErr != nil {
			logger.Error("failed to remove user after session failure", "user_id", newUser.ID, "error", delErr)
		}
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return newUser, sess, nil
}

// Login opens a session for valid credentials. A missing user and a wrong
// password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*user.User, *session.Session, error) {
	existingUser, err := s.store.Users().GetByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(s.fallbackHash(), password)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existingUser.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.CreateSession(ctx, existingUser.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return existingUser, sess, nil
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("unknown-account-placeholder")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// Logout invalidates the session if there is one.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.InvalidateSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// VerifyEmail consumes code for u. On success the email is marked verified,
// every existing session of the user is revoked and a new session is returned.
// A wrong or expired code returns ErrInvalidCode.
func (s *Service) VerifyEmail(ctx context.Context, u *user.User, code string) (*session.Session, error) {
	var valid bool
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		ok, err := tx.Codes().Consume(ctx, u.ID, u.Email, code)
		if err != nil {
			return err
		}
		if !ok {
			// commit so the consumed row stays deleted
			return nil
		}

		if err := tx.Users().MarkEmailAsVerified(ctx, u.ID); err != nil {
			return err
		}

		// Revoked before commit: if Redis fails the user stays unverified
		// and the code stays usable.
		if err := s.sessions.InvalidateUserSessions(ctx, u.ID); err != nil {
			return fmt.Errorf("failed to invalidate sessions: %w", err)
		}

		valid = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCode
	}

	sess, err := s.sessions.CreateSession(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sess, nil
}

// ResendVerificationCode replaces the user's code and sends the new one.
// It does nothing for verified users.
func (s *Service) ResendVerificationCode(ctx context.Context, u *user.User) error {
	if u.EmailVerified {
		return nil
	}

	var code *verification.Code
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		c, err := tx.Codes().Issue(ctx, u.ID, u.Email)
		if err != nil {
			return err
		}
		code = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to issue verification code: %w", err)
	}

	if err := s.sender.SendVerificationCode(ctx, u.Email, code.Code, code.ExpiresAt); err != nil {
		if s.requireDelivery {
			return errors.Join(ErrDeliveryFailed, err)
		}
		logging.GetLoggerFromContext(ctx).Warn("failed to resend verification email", "user_id", u.ID, "error", err)
	}

	return nil
}

// RevokeSessions logs the user with the given email out everywhere.
func (s *Service) RevokeSessions(ctx context.Context, emailAddr string) (*user.User, error) {
	u, err := s.store.Users().GetByEmail(ctx, NormalizeEmail(emailAddr))
	if err != nil {
		return nil, err
	}
	if err := s.sessions.InvalidateUserSessions(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("failed to invalidate sessions: %w", err)
	}
	return u, nil
}

// FindUserByEmail looks up a user for operator tooling.
func (s *Service) FindUserByEmail(ctx context.Context, emailAddr string) (*user.User, error) {
	return s.store.Users().GetByEmail(ctx, NormalizeEmail(emailAddr))
}
