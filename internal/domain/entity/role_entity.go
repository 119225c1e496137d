package entity

import "fmt"

// Role represents an authorization role
// The set is closed; stored and exposed by its symbolic name.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

var knownRoles = map[string]Role{
	string(RoleUser):  RoleUser,
	string(RoleAdmin): RoleAdmin,
}

func (r Role) String() string { return string(r) }

// ParseRole maps a stored symbol back to a Role. Unknown symbols are rejected.
func ParseRole(s string) (Role, error) {
	if r, ok := knownRoles[s]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ParseRoles parses every symbol in order, keeping duplicates.
func ParseRoles(symbols []string) ([]Role, error) {
	roles := make([]Role, 0, len(symbols))
	for _, s := range symbols {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// RoleNames returns the symbolic names of roles, in order.
func RoleNames(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}
