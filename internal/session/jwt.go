package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTService seals claims as HS256-signed JWTs.
type JWTService struct {
	secret []byte
}

func NewJWTService(secret []byte) (*JWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes, got %d", len(secret))
	}
	return &JWTService{secret: secret}, nil
}

func (s *JWTService) CreateToken(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) VerifyToken(tokenStr string) (*Claims, error) {
	parsed := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}

	if parsed.SessionID == "" {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		SessionID: parsed.SessionID,
		UserID:    userID,
		ExpiresAt: parsed.ExpiresAt.Time,
	}, nil
}
