// Package testutil provides in-memory collaborators for unit tests.
package testutil

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/authorization-service/internal/domain/entity"
	repo "github.com/oksasatya/authorization-service/internal/domain/repository"
	"github.com/oksasatya/authorization-service/pkg/helpers"
)

// FastHasher hashes with the minimum bcrypt cost.
var FastHasher = helpers.BcryptHasher(bcrypt.MinCost)

// MemUserRepo is a map-backed repository.UserRepository that enforces the same
// validation and uniqueness rules as the storage adapters.
type MemUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*entity.User
	Saves int
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: map[string]*entity.User{}}
}

func (r *MemUserRepo) Insert(_ context.Context, u *entity.User) (*entity.User, error) {
	if err := repo.Validate(u); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.users {
		if x.Email() == u.Email() || x.Identifier() == u.Identifier() {
			return nil, repo.ErrDuplicateUser
		}
	}
	r.seq++
	stored := u.WithID(strconv.Itoa(r.seq))
	r.users[stored.ID()] = stored
	return stored, nil
}

func (r *MemUserRepo) Save(_ context.Context, u *entity.User) error {
	if err := repo.Validate(u); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID()]; !ok {
		return repo.ErrUserNotFound
	}
	for id, x := range r.users {
		if id != u.ID() && (x.Email() == u.Email() || x.Identifier() == u.Identifier()) {
			return repo.ErrDuplicateUser
		}
	}
	r.users[u.ID()] = u
	r.Saves++
	return nil
}

func (r *MemUserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.ID() == id })
}

func (r *MemUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Email() == email })
}

func (r *MemUserRepo) FindByIdentifier(_ context.Context, identifier string) (*entity.User, error) {
	return r.find(func(u *entity.User) bool { return u.Identifier() == identifier })
}

func (r *MemUserRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

var _ repo.UserRepository = (*MemUserRepo)(nil)

// DecodeJSON unmarshals a recorded response body into v.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
