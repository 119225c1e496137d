// Package security holds the contract an authenticated principal must satisfy
// and the account checks run around credential verification.
package security

import (
	"errors"
	"slices"
)

var (
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountExpired     = errors.New("account expired")
	ErrCredentialsExpired = errors.New("credentials expired")
)

// UserDetails is the capability set consumed by authentication and
// authorization decisions.
type UserDetails interface {
	Username() string
	Password() string
	Authorities() []string
	IsEnabled() bool
	IsAccountNonExpired() bool
	IsAccountNonLocked() bool
	IsCredentialsNonExpired() bool
}

// CheckAccount runs the pre-authentication checks. It must pass before the
// password is compared, so a disabled account is rejected even with correct
// credentials.
func CheckAccount(d UserDetails) error {
	if !d.IsAccountNonLocked() {
		return ErrAccountLocked
	}
	if !d.IsEnabled() {
		return ErrAccountDisabled
	}
	if !d.IsAccountNonExpired() {
		return ErrAccountExpired
	}
	return nil
}

// CheckCredentials runs the post-authentication check.
func CheckCredentials(d UserDetails) error {
	if !d.IsCredentialsNonExpired() {
		return ErrCredentialsExpired
	}
	return nil
}

// HasAuthority reports whether want is among the granted authority tokens.
func HasAuthority(granted []string, want string) bool {
	return slices.Contains(granted, want)
}
