package entity

import (
	"slices"

	"github.com/oksasatya/authorization-service/internal/domain/security"
)

// User is the aggregate root for the identity domain
// Values are immutable: any change is a new value with the same ID, produced via ToBuilder.
// PasswordHash always holds a bcrypt hash, never the plaintext.
//
// Expiry and locking are not modelled; the related predicates are constant true.
type User struct {
	id           string
	identifier   string
	email        string
	passwordHash string
	enabled      bool
	roles        []Role
}

func newUser(id, identifier, email, passwordHash string, enabled bool, roles []Role) *User {
	return &User{
		id:           id,
		identifier:   identifier,
		email:        email,
		passwordHash: passwordHash,
		enabled:      enabled,
		roles:        slices.Clone(roles),
	}
}

// RestoreUser rebuilds a stored value. Only persistence adapters should call it;
// passwordHash is taken as already hashed.
func RestoreUser(id, identifier, email, passwordHash string, enabled bool, roles []Role) *User {
	return newUser(id, identifier, email, passwordHash, enabled, roles)
}

// WithID returns a copy carrying the storage-assigned id.
func (u *User) WithID(id string) *User {
	return newUser(id, u.identifier, u.email, u.passwordHash, u.enabled, u.roles)
}

func (u *User) ID() string           { return u.id }
func (u *User) Identifier() string   { return u.identifier }
func (u *User) Email() string        { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) Enabled() bool        { return u.enabled }
func (u *User) Roles() []Role        { return slices.Clone(u.roles) }

// Authorities maps roles one-to-one onto authority tokens, keeping order.
// No roles means no permissions, not an error.
func (u *User) Authorities() []string {
	return RoleNames(u.roles)
}

func (u *User) IsEnabled() bool { return u.enabled }

// Username is the login identity: the email, not Identifier.
func (u *User) Username() string { return u.email }

func (u *User) Password() string { return u.passwordHash }

func (u *User) IsAccountNonExpired() bool     { return true }
func (u *User) IsAccountNonLocked() bool      { return true }
func (u *User) IsCredentialsNonExpired() bool { return true }

var _ security.UserDetails = (*User)(nil)
