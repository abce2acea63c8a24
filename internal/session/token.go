package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims is the payload sealed into the session cookie.
type Claims struct {
	SessionID string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// TokenService seals session claims into an opaque cookie value and opens it again.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(claims Claims) (string, error)
	VerifyToken(tokenStr string) (*Claims, error)
}
