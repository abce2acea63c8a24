package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-verify/internal/session"
	"github.com/redmonkez12/go-auth-verify/internal/user"
	"github.com/redmonkez12/go-auth-verify/internal/verification"
)

// memStore is an in-memory Store. RunInTx restores the previous state when fn fails.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
	codes map[uuid.UUID]*verification.Code

	createErr error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]*user.User),
		codes: make(map[uuid.UUID]*verification.Code),
	}
}

func (s *memStore) Users() UserStore { return (*memUsers)(s) }

func (s *memStore) Codes() CodeService {
	return verification.NewService((*memCodes)(s), verification.Config{})
}

func (s *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.mu.Lock()
	users := cloneMap(s.users)
	codes := cloneMap(s.codes)
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.users, s.codes = users, codes
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[V any](m map[uuid.UUID]*V) map[uuid.UUID]*V {
	out := make(map[uuid.UUID]*V, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) code(userID uuid.UUID) *verification.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[userID]
}

type memUsers memStore

func (u *memUsers) Create(_ context.Context, email, passwordHash string) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.createErr != nil {
		return nil, u.createErr
	}
	for _, existing := range u.users {
		if existing.Email == email {
			return nil, user.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	created := &user.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	u.users[created.ID] = created
	cp := *created
	return &cp, nil
}

func (u *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if existing.Email == email {
			cp := *existing
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (u *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *existing
	return &cp, nil
}

func (u *memUsers) MarkEmailAsVerified(_ context.Context, id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	existing, ok := u.users[id]
	if !ok {
		return user.ErrNotFound
	}
	existing.EmailVerified = true
	return nil
}

func (u *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(u.users, id)
	delete(u.codes, id)
	return nil
}

type memCodes memStore

func (c *memCodes) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.codes, userID)
	return nil
}

func (c *memCodes) Create(_ context.Context, code *verification.Code) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *code
	c.codes[code.UserID] = &cp
	return nil
}

func (c *memCodes) DeleteMatching(_ context.Context, userID uuid.UUID, email, code string) (*verification.Code, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.codes[userID]
	if !ok || existing.Email != email || existing.Code != code {
		return nil, verification.ErrNotFound
	}
	delete(c.codes, userID)
	return existing, nil
}

func (c *memCodes) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for id, code := range c.codes {
		if !code.ExpiresAt.After(before) {
			delete(c.codes, id)
			n++
		}
	}
	return n, nil
}

// capturingSender records the last code sent to each address.
type capturingSender struct {
	mu    sync.Mutex
	codes map[string]string
	calls int
	err   error
}

func newCapturingSender() *capturingSender {
	return &capturingSender{codes: make(map[string]string)}
}

func (s *capturingSender) SendVerificationCode(_ context.Context, to, code string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.codes[to] = code
	return nil
}

func (s *capturingSender) lastCode(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[to]
}

// failingSessions fails session creation and delegates everything else.
type failingSessions struct {
	*session.Manager
}

func (f failingSessions) CreateSession(context.Context, uuid.UUID) (*session.Session, error) {
	return nil, errors.New("redis unavailable")
}

func testHasher() *Argon2Hasher {
	return &Argon2Hasher{time: 1, memory: 8 * 1024, threads: 1, keyLen: 32}
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func newTestSessions(t *testing.T, client *redis.Client) *session.Manager {
	t.Helper()
	tokens, err := session.NewPasetoService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return session.NewManager(session.NewRedisStore(client), tokens, session.Config{})
}
