package application

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/internal/infrastructure/search"
)

var (
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidActivationToken = errors.New("invalid or expired activation token")
)

// Session is the server-side record backing a token pair.
type Session struct {
	UserID    string
	Email     string
	SessionID string
}

type SessionStore interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, userID string) (Session, error)
	Delete(ctx context.Context, userID string) error
}

// ActivationStore holds single-use tokens that enable an account, plus a
// per-user marker saying the account still awaits its first activation.
// Tokens are only honoured while the marker is set.
type ActivationStore interface {
	Issue(ctx context.Context, token, userID string, ttl time.Duration) error
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error

	MarkPending(ctx context.Context, userID string) error
	IsPending(ctx context.Context, userID string) (bool, error)
	ClearPending(ctx context.Context, userID string) error
}

// JobPublisher enqueues background jobs (activation emails).
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserIndexer keeps the searchable user directory in sync.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *entity.User) error
	Search(ctx context.Context, q string, size int) ([]search.UserHit, error)
}
