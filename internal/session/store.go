package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions. Implementations must never keep the raw session id.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// RedisStore keeps each session in a hash keyed by the SHA-256 of its id,
// with a per-user set indexing the hashes for bulk invalidation.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func hashSessionID(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

const sessionKeyPrefix = "session:"

func getSessionKey(idHash string) string {
	return sessionKeyPrefix + idHash
}

func getUserSessionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_sessions:%s", userID.String())
}

// Save writes the session and (re)sets its TTL. Saving an existing session extends it.
func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session expiration time is in the past")
	}

	idHash := hashSessionID(s.ID)
	sessionKey := getSessionKey(idHash)
	userSessionsKey := getUserSessionsKey(s.UserID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey, map[string]any{
			"user_id":    s.UserID.String(),
			"expires_at": s.ExpiresAt.Unix(),
		})
		pipe.Expire(ctx, sessionKey, ttl)

		pipe.SAdd(ctx, userSessionsKey, idHash)
		pipe.Expire(ctx, userSessionsKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.HGetAll(ctx, getSessionKey(hashSessionID(sessionID))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}

	userID, err := uuid.Parse(data["user_id"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	expiresAtUnix, err := strconv.ParseInt(data["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}

	return &Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Unix(expiresAtUnix, 0).UTC(),
	}, nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	idHash := hashSessionID(sessionID)
	sessionKey := getSessionKey(idHash)

	rawUserID, err := r.client.HGet(ctx, sessionKey, "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey)
	if userID, err := uuid.Parse(rawUserID); err == nil {
		pipe.SRem(ctx, getUserSessionsKey(userID), idHash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// deleteUserSessionsScript removes every session in the user's index and the
// index itself in one step, so a concurrent Save cannot slip between the read
// and the delete.
var deleteUserSessionsScript = redis.NewScript(`
local hashes = redis.call("SMEMBERS", KEYS[1])
for _, idHash in ipairs(hashes) do
  redis.call("DEL", ARGV[1] .. idHash)
end
redis.call("DEL", KEYS[1])
return #hashes
`)

func (r *RedisStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	err := deleteUserSessionsScript.Run(ctx, r.client, []string{getUserSessionsKey(userID)}, sessionKeyPrefix).Err()
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	return nil
}
