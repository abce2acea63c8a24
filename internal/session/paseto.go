package session

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoService seals claims with PASETO v4.local (XChaCha20-Poly1305).
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{symmetricKey: key}, nil
}

func (s *PasetoService) CreateToken(claims Claims) (string, error) {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(claims.ExpiresAt)
	token.SetString("sid", claims.SessionID)
	token.SetString("user_id", claims.UserID.String())

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyToken decrypts the token and checks its expiration.
func (s *PasetoService) VerifyToken(tokenStr string) (*Claims, error) {
	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sessionID, err := token.GetString("sid")
	if err != nil || sessionID == "" {
		return nil, ErrInvalidToken
	}

	rawUserID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, nil
}
