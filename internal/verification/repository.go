package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-auth-verify/internal/database"
)

var ErrNotFound = errors.New("verification code not found")

// Repository persists verification codes.
type Repository interface {
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	Create(ctx context.Context, code *Code) error
	// DeleteMatching removes and returns the row matching all three values in
	// a single statement. It returns ErrNotFound when nothing matched.
	DeleteMatching(ctx context.Context, userID uuid.UUID, email, code string) (*Code, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// BunRepository stores codes in the email_verification_codes table.
type BunRepository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.EmailVerificationCode)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete verification codes: %w", err)
	}
	return nil
}

func (r *BunRepository) Create(ctx context.Context, code *Code) error {
	row := &database.EmailVerificationCode{
		UserID:    code.UserID,
		Email:     code.Email,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

const deleteMatchingQuery = `DELETE FROM email_verification_codes
WHERE user_id = ? AND code = ? AND email = ?
RETURNING *`

func (r *BunRepository) DeleteMatching(ctx context.Context, userID uuid.UUID, email, code string) (*Code, error) {
	row := new(database.EmailVerificationCode)
	err := r.db.NewRaw(deleteMatchingQuery, userID, code, email).Scan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to consume verification code: %w", err)
	}

	return &Code{
		UserID:    row.UserID,
		Email:     row.Email,
		Code:      row.Code,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (r *BunRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.EmailVerificationCode)(nil)).
		Where("expires_at <= ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge verification codes: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
