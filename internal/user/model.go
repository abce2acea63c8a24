package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the typed projection of an account exposed to handlers and templates.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Never expose password hash in JSON
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
