// Package roles defines the fixed, totally ordered role hierarchy used for
// authorization decisions. The set and its ranking are frozen at compile time;
// every permission check is a single integer comparison.
package roles

import (
	"errors"
	"fmt"
)

// Role is one of the fixed role identifiers.
type Role string

const (
	// Viewer has read-only access.
	Viewer Role = "viewer"
	// Developer can modify work items.
	Developer Role = "developer"
	// ProjectOwner administers a project and its members.
	ProjectOwner Role = "project_owner"
	// Admin has full access.
	Admin Role = "admin"
)

// ErrUnknownRole is returned by Parse for role strings outside the fixed set.
var ErrUnknownRole = errors.New("unknown role")

// ranks are contiguous and start at 1. Rank 0 is reserved for invalid roles
// so the zero Role never satisfies any permission check.
var ranks = map[Role]int{
	Viewer:       1,
	Developer:    2,
	ProjectOwner: 3,
	Admin:        4,
}

var ordered = []Role{Viewer, Developer, ProjectOwner, Admin}

// Rank returns the role's position in the hierarchy, or 0 for unknown roles.
func (r Role) Rank() int {
	return ranks[r]
}

// Valid reports whether r is a member of the fixed role set.
func (r Role) Valid() bool {
	return ranks[r] != 0
}

// Allows reports whether a principal holding r satisfies the required role.
// Unknown roles on either side never allow.
func (r Role) Allows(required Role) bool {
	actual := ranks[r]
	want := ranks[required]
	if actual == 0 || want == 0 {
		return false
	}
	return actual >= want
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Parse validates an externally supplied role string against the fixed set.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// All returns the roles in ascending rank order. The returned slice is a
// copy; callers may mutate it freely.
func All() []Role {
	out := make([]Role, len(ordered))
	copy(out, ordered)
	return out
}
