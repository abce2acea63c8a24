package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config holds the code shape. Zero values fall back to the defaults.
type Config struct {
	Length int
	TTL    time.Duration
}

// Service issues and consumes verification codes.
type Service struct {
	repo     Repository
	length   int
	ttl      time.Duration
	now      func() time.Time
	generate func(length int) (string, error)
}

func NewService(repo Repository, cfg Config) *Service {
	if cfg.Length <= 0 {
		cfg.Length = DefaultCodeLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCodeTTL
	}
	return &Service{
		repo:     repo,
		length:   cfg.Length,
		ttl:      cfg.TTL,
		now:      time.Now,
		generate: GenerateCode,
	}
}

// Issue replaces any existing code for the user with a fresh one and returns
// it for out-of-band delivery.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID, email string) (*Code, error) {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return nil, err
	}

	value, err := s.generate(s.length)
	if err != nil {
		return nil, err
	}

	code := &Code{
		UserID:    userID,
		Email:     email,
		Code:      value,
		ExpiresAt: s.now().UTC().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, code); err != nil {
		return nil, err
	}

	return code, nil
}

// Consume reports whether submitted is the user's current, unexpired code.
// A matching row is deleted whether or not it is still valid.
func (s *Service) Consume(ctx context.Context, userID uuid.UUID, email, submitted string) (bool, error) {
	code, err := s.repo.DeleteMatching(ctx, userID, email, submitted)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if code.Expired(s.now()) {
		return false, nil
	}
	return true, nil
}

// PurgeExpired deletes codes that expired before now and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("purge expired codes: %w", err)
	}
	return n, nil
}
