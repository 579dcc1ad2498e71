// Package auth holds the authentication core of the service: roles and
// identities, the session token codec, password hashing and the login
// lockout policy.  Nothing in this package touches HTTP; the middleware and
// handler packages translate its results into responses.
package auth

// Role is one of the fixed set of principals recognised by the API.  The
// string values are the ones persisted in usuarios.rol and embedded in the
// "rol" token claim, so they must not change.
type Role string

const (
	RoleAdmin     Role = "Administrador"
	RoleProfessor Role = "Profesor"
	RoleStudent   Role = "Alumno"
)

// ParseRole maps a stored or claimed role string onto a Role.  Unknown values
// are rejected rather than passed through.
func ParseRole(s string) (Role, bool) {
	if r := Role(s); r.Valid() {
		return r, true
	}
	return "", false
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProfessor, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// RoleSet is a set of roles used for membership checks.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has reports whether r is a member of the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Identity is an authenticated principal as carried in a session token.
type Identity struct {
	ID    int64
	Email string
	Name  string
	Role  Role
}
