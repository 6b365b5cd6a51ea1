// Package permission resolves roles to the flat set of dotted permission codes they hold.
// Lookups are pure: the table lives in code and nothing here performs I/O.
package permission

import (
	"sort"
	"strings"
)

// Role is the tag stored on a user record, e.g. "developer".
type Role string

// Permission is a dotted "<domain>.<action>" capability, e.g. "projects.view".
type Permission string

// Domain returns the part before the first dot.
func (p Permission) Domain() string {
	domain, _, _ := strings.Cut(string(p), ".")
	return domain
}

// Set is an unordered collection of permissions.
type Set map[Permission]struct{}

// NewSet builds a Set from a list, ignoring duplicates.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports exact membership. There is no wildcard or prefix matching.
func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the codes in lexical order, mostly for stable JSON output.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// PermissionsForRole returns a copy of the permissions granted to role.
// Unknown and empty roles resolve to the empty set.
func PermissionsForRole(role Role) Set {
	granted, ok := roleTable[role]
	if !ok {
		return Set{}
	}
	return NewSet(granted...)
}

// HasPermission reports whether role holds perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range roleTable[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// IsKnownRole reports whether role appears in the table.
func IsKnownRole(role Role) bool {
	_, ok := roleTable[role]
	return ok
}

// Roles lists every known role in table order.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// Catalog lists every permission in catalog order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Principal is the per-request identity derived from a verified access token.
// It is built once and never mutated; an auth change produces a new Principal.
type Principal struct {
	UserID      string
	Role        Role
	permissions Set
}

// NewPrincipal resolves role and freezes the result.
func NewPrincipal(userID string, role Role) Principal {
	return Principal{UserID: userID, Role: role, permissions: PermissionsForRole(role)}
}

// Can reports whether the principal holds perm. The zero Principal holds nothing.
func (p Principal) Can(perm Permission) bool {
	return p.permissions.Has(perm)
}

// Permissions returns the sorted permission codes for the principal.
func (p Principal) Permissions() []string {
	return p.permissions.Sorted()
}
