package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	"github.com/oksasatya/authorization-service/internal/domain/repository"
)

const (
	pgUniqueViolation   = "23505"
	pgInvalidTextRepres = "22P02"
)

const selectUser = `
	SELECT id::text, identifier, username, password, enabled, roles
	FROM users
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := repository.Validate(u); err != nil {
		return nil, err
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (identifier, username, password, enabled, roles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, u.Identifier(), u.Email(), u.PasswordHash(), u.Enabled(), entity.RoleNames(u.Roles())).Scan(&id)
	if err != nil {
		return nil, translate(err)
	}
	return u.WithID(id), nil
}

func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	if err := repository.Validate(u); err != nil {
		return err
	}
	if u.ID() == "" {
		return repository.ErrUserNotFound
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET identifier = $1, username = $2, password = $3, enabled = $4, roles = $5, updated_at = now()
		WHERE id = $6
	`, u.Identifier(), u.Email(), u.PasswordHash(), u.Enabled(), entity.RoleNames(u.Roles()), u.ID())
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, selectUser+`WHERE username = $1`, email)
}

func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	return r.findOne(ctx, selectUser+`WHERE identifier = $1`, identifier)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var (
		id, identifier, username, password string
		enabled                            bool
		roleNames                          []string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(&id, &identifier, &username, &password, &enabled, &roleNames)
	if err != nil {
		return nil, translate(err)
	}
	roles, err := entity.ParseRoles(roleNames)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return entity.RestoreUser(id, identifier, username, password, enabled, roles), nil
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicateUser, pgErr.ConstraintName)
		case pgInvalidTextRepres:
			// malformed uuid in a lookup
			return repository.ErrUserNotFound
		}
	}
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
