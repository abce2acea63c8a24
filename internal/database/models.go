package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the row stored in the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Email         string    `bun:"email,notnull,unique"`
	PasswordHash  string    `bun:"hashed_password,notnull"`
	EmailVerified bool      `bun:"email_verified,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// EmailVerificationCode is the row stored in the email_verification_codes table.
type EmailVerificationCode struct {
	bun.BaseModel `bun:"table:email_verification_codes,alias:evc"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    uuid.UUID `bun:"user_id,type:uuid,notnull"`
	Email     string    `bun:"email,notnull"`
	Code      string    `bun:"code,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
