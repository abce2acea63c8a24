package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-verify/internal/session"
	"github.com/redmonkez12/go-auth-verify/internal/user"
	"github.com/redmonkez12/go-auth-verify/internal/verification"
)

type serviceFixture struct {
	service  *Service
	store    *memStore
	sender   *capturingSender
	sessions *session.Manager
}

func newServiceFixture(t *testing.T, requireDelivery bool) *serviceFixture {
	t.Helper()
	client, _ := newTestRedis(t)
	store := newMemStore()
	sender := newCapturingSender()
	sessions := newTestSessions(t, client)

	return &serviceFixture{
		service:  NewService(store, sessions, testHasher(), sender, requireDelivery),
		store:    store,
		sender:   sender,
		sessions: sessions,
	}
}

func TestSignup_CreatesUserCodeAndSession(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	u, sess, err := f.service.Signup(ctx, "  A@Example.com ", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", u.Email)
	assert.False(t, u.EmailVerified)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.Equal(t, 1, f.store.userCount())

	code := f.store.code(u.ID)
	require.NotNil(t, code)
	assert.Len(t, code.Code, verification.DefaultCodeLength)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), code.ExpiresAt, 5*time.Second)
	assert.Equal(t, code.Code, f.sender.lastCode("a@example.com"))

	got, err := f.sessions.ValidateSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
}

func TestService_SignupDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, sess, err := f.service.Signup(ctx, "A@example.com", "secret2")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
	assert.Nil(t, sess)
	assert.Equal(t, 1, f.store.userCount())
	assert.Equal(t, 1, f.sender.calls)
}

func TestSignup_StoreError(t *testing.T) {
	f := newServiceFixture(t, false)
	f.store.createErr = errors.New("connection refused")

	_, _, err := f.service.Signup(context.Background(), "a@example.com", "secret1")
	assert.Error(t, err)
	assert.Zero(t, f.sender.calls)
}

func TestSignup_RequiredDeliveryFailureRollsBack(t *testing.T) {
	f := newServiceFixture(t, true)
	f.sender.err = errors.New("provider rejected")

	_, sess, err := f.service.Signup(context.Background(), "a@example.com", "secret1")
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Nil(t, sess)
	assert.Zero(t, f.store.userCount())
}

func TestSignup_BestEffortDeliveryFailureSucceeds(t *testing.T) {
	f := newServiceFixture(t, false)
	f.sender.err = errors.New("provider rejected")

	u, sess, err := f.service.Signup(context.Background(), "a@example.com", "secret1")
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.NotNil(t, f.store.code(u.ID))
}

func TestSignup_SessionFailureRemovesUser(t *testing.T) {
	f := newServiceFixture(t, false)
	f.service.sessions = failingSessions{Manager: f.sessions}

	_, _, err := f.service.Signup(context.Background(), "a@example.com", "secret1")
	assert.Error(t, err)
	assert.Zero(t, f.store.userCount())
}

func TestService_Login(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	created, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	u, sess, err := f.service.Login(ctx, "A@EXAMPLE.COM", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.NotNil(t, sess)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, wrongPasswordSession, wrongPasswordErr := f.service.Login(ctx, "a@example.com", "secret2")
	_, unknownEmailSession, unknownEmailErr := f.service.Login(ctx, "nobody@example.com", "secret1")

	assert.ErrorIs(t, wrongPasswordErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmailErr, ErrInvalidCredentials)
	assert.Equal(t, wrongPasswordErr.Error(), unknownEmailErr.Error())
	assert.Nil(t, wrongPasswordSession)
	assert.Nil(t, unknownEmailSession)
}

// countingHasher counts Verify calls on top of a real hasher.
type countingHasher struct {
	PasswordHasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(encodedHash, password string) bool {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(encodedHash, password)
}

func TestLogin_UnknownEmailStillVerifiesAHash(t *testing.T) {
	client, _ := newTestRedis(t)
	hasher := &countingHasher{PasswordHasher: testHasher()}
	svc := NewService(newMemStore(), newTestSessions(t, client), hasher, newCapturingSender(), false)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "a@example.com", "secret2"},
		{"unknown email", "nobody@example.com", "secret1"},
		{"unknown email again", "other@example.com", "secret1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher.verifies.Store(0)

			_, _, err := svc.Login(ctx, tt.email, tt.password)

			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, int32(1), hasher.verifies.Load())
		})
	}

	assert.NotEmpty(t, svc.fallbackHash())
}

func TestLogin_UnverifiedUserCanLogIn(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	u, _, err := f.service.Login(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, u.EmailVerified)
}

func TestService_Logout(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, sess, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, sess.ID))
	_, err = f.sessions.ValidateSession(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	assert.NoError(t, f.service.Logout(ctx, ""))
	assert.NoError(t, f.service.Logout(ctx, sess.ID))
}

func TestVerifyEmail(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	u, oldSession, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	code := f.sender.lastCode("a@example.com")

	newSession, err := f.service.VerifyEmail(ctx, u, code)
	require.NoError(t, err)

	verified, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	_, err = f.sessions.ValidateSession(ctx, oldSession.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = f.sessions.ValidateSession(ctx, newSession.ID)
	assert.NoError(t, err)

	_, err = f.service.VerifyEmail(ctx, u, code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

// revokeFailingSessions fails bulk revocation and delegates everything else.
type revokeFailingSessions struct {
	*session.Manager
}

func (revokeFailingSessions) InvalidateUserSessions(context.Context, uuid.UUID) error {
	return errors.New("redis unavailable")
}

func TestVerifyEmail_RevocationFailureLeavesUserUnverified(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	u, oldSession, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	code := f.sender.lastCode("a@example.com")

	broken := NewService(f.store, revokeFailingSessions{f.sessions}, testHasher(), f.sender, false)
	_, err = broken.VerifyEmail(ctx, u, code)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCode)

	stored, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailVerified)
	assert.NotNil(t, f.store.code(u.ID))

	// once Redis is back the same code completes verification and rotation
	newSession, err := f.service.VerifyEmail(ctx, u, code)
	require.NoError(t, err)
	_, err = f.sessions.ValidateSession(ctx, oldSession.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = f.sessions.ValidateSession(ctx, newSession.ID)
	assert.NoError(t, err)
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	u, sess, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.service.VerifyEmail(ctx, u, "00000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	stored, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailVerified)

	// the session survives a failed attempt
	_, err = f.sessions.ValidateSession(ctx, sess.ID)
	assert.NoError(t, err)
	assert.NotNil(t, f.store.code(u.ID))
}

func TestVerifyEmail_ExpiredCode(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	u, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	code := f.store.code(u.ID)
	code.ExpiresAt = time.Now().Add(-time.Second)
	f.store.mu.Lock()
	f.store.codes[u.ID] = code
	f.store.mu.Unlock()

	_, err = f.service.VerifyEmail(ctx, u, code.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Nil(t, f.store.code(u.ID))
}

func TestResendVerificationCode(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	u, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	first := f.store.code(u.ID)

	require.NoError(t, f.service.ResendVerificationCode(ctx, u))
	second := f.store.code(u.ID)

	require.NotNil(t, second)
	assert.Equal(t, second.Code, f.sender.lastCode("a@example.com"))
	assert.Equal(t, 2, f.sender.calls)
	if first.Code != second.Code {
		_, err = f.service.VerifyEmail(ctx, u, first.Code)
		assert.ErrorIs(t, err, ErrInvalidCode)
	}
}

func TestResendVerificationCode_VerifiedUserIsNoop(t *testing.T) {
	f := newServiceFixture(t, false)

	err := f.service.ResendVerificationCode(context.Background(), &user.User{EmailVerified: true})
	require.NoError(t, err)
	assert.Zero(t, f.sender.calls)
}

func TestResendVerificationCode_RequiredDeliveryFailure(t *testing.T) {
	f := newServiceFixture(t, true)
	ctx := context.Background()

	u, _, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	f.sender.err = errors.New("provider rejected")
	err = f.service.ResendVerificationCode(ctx, u)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestRevokeSessions(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, sess, err := f.service.Signup(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, err = f.service.RevokeSessions(ctx, "A@example.com")
	require.NoError(t, err)

	_, err = f.sessions.ValidateSession(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = f.service.RevokeSessions(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
}
