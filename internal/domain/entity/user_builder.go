package entity

import (
	"slices"

	"github.com/oksasatya/authorization-service/pkg/helpers"
)

// PasswordHasher turns a plaintext password into a salted one-way hash.
type PasswordHasher func(plain string) (string, error)

// UserBuilder stages a single User. It is not safe for concurrent use.
//
// The builder performs no validation; constraints are enforced when the
// built value is written by a repository.
type UserBuilder struct {
	hash PasswordHasher

	id           string
	identifier   string
	username     string
	passwordHash string
	enabled      bool
	roles        []Role
	err          error
}

// NewUserBuilder returns a builder hashing with bcrypt at the default cost.
func NewUserBuilder() *UserBuilder {
	return NewUserBuilderWithHasher(helpers.HashPassword)
}

func NewUserBuilderWithHasher(h PasswordHasher) *UserBuilder {
	if h == nil {
		h = helpers.HashPassword
	}
	return &UserBuilder{hash: h}
}

// ToBuilder seeds a builder with every field of u, id included, so the built
// value replaces u when saved. The stored hash is carried over as is.
func (u *User) ToBuilder() *UserBuilder {
	return u.ToBuilderWithHasher(helpers.HashPassword)
}

func (u *User) ToBuilderWithHasher(h PasswordHasher) *UserBuilder {
	b := NewUserBuilderWithHasher(h)
	b.id = u.id
	b.identifier = u.identifier
	b.username = u.email
	b.passwordHash = u.passwordHash
	b.enabled = u.enabled
	b.roles = slices.Clone(u.roles)
	return b
}

func (b *UserBuilder) Identifier(identifier string) *UserBuilder {
	b.identifier = identifier
	return b
}

// Username sets the login name, which is the email.
func (b *UserBuilder) Username(username string) *UserBuilder {
	b.username = username
	return b
}

// Password hashes plain right away; the plaintext is never kept. Call it with
// the real password only: an already hashed value would be hashed again.
func (b *UserBuilder) Password(plain string) *UserBuilder {
	h, err := b.hash(plain)
	if err != nil {
		b.passwordHash = ""
		b.err = err
		return b
	}
	b.passwordHash = h
	b.err = nil
	return b
}

func (b *UserBuilder) Enabled(enabled bool) *UserBuilder {
	b.enabled = enabled
	return b
}

// RoleUser replaces any assigned roles with USER.
func (b *UserBuilder) RoleUser() *UserBuilder {
	b.roles = []Role{RoleUser}
	return b
}

// RoleAdmin replaces any assigned roles with ADMIN.
func (b *UserBuilder) RoleAdmin() *UserBuilder {
	b.roles = []Role{RoleAdmin}
	return b
}

// Build binds (id, identifier, username, hash, enabled, roles) onto
// (id, identifier, email, passwordHash, enabled, roles). The only error is a
// failed password hash.
func (b *UserBuilder) Build() (*User, error) {
	if b.err != nil {
		return nil, b.err
	}
	return newUser(b.id, b.identifier, b.username, b.passwordHash, b.enabled, b.roles), nil
}
