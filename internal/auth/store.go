package auth

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-auth-verify/internal/user"
	"github.com/redmonkez12/go-auth-verify/internal/verification"
)

// UserStore is the credential store used by the orchestrator.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CodeService issues and consumes verification codes.
type CodeService interface {
	Issue(ctx context.Context, userID uuid.UUID, email string) (*verification.Code, error)
	Consume(ctx context.Context, userID uuid.UUID, email, code string) (bool, error)
}

// Store groups the relational stores so that several writes can share one
// transaction. Stores handed to fn are bound to that transaction.
type Store interface {
	Users() UserStore
	Codes() CodeService
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// BunStore implements Store on a *bun.DB or a bun.Tx.
type BunStore struct {
	db      bun.IDB
	codeCfg verification.Config
}

func NewBunStore(db bun.IDB, codeCfg verification.Config) *BunStore {
	return &BunStore{db: db, codeCfg: codeCfg}
}

func (s *BunStore) Users() UserStore {
	return user.NewRepository(s.db)
}

func (s *BunStore) Codes() CodeService {
	return verification.NewService(verification.NewRepository(s.db), s.codeCfg)
}

func (s *BunStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunStore{db: tx, codeCfg: s.codeCfg})
	})
}
