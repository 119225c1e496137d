package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("identifier or username already taken")
)

// External field names shared by every storage adapter.
const (
	FieldIdentifier = "identifier"
	FieldUsername   = "username"
	FieldPassword   = "password"
	FieldEnabled    = "enabled"
	FieldRoles      = "roles"
)

// UserRepository defines the interface for user persistence.
// Implementations validate every value before writing it (see Validate) and
// enforce uniqueness of identifier and username.
type UserRepository interface {
	// Insert stores a new user and returns it with the storage-assigned id.
	Insert(ctx context.Context, u *entity.User) (*entity.User, error)
	// Save replaces the stored user having the same id.
	Save(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error)
}
