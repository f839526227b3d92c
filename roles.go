package auth

import (
	"fmt"
	"strings"
)

// Role is the value of the role claim
type Role string

const (
	RoleUser   Role = Role(DefaultRole)
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleHierarchy = map[Role]int{
	RoleUser:   0,
	RoleEditor: 1,
	RoleAdmin:  2,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleEditor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// ValidateRoleClaim rejects a role claim that is not one of GetAllRoles.
// Claims without a role are accepted, DefaultRole applies at issue time.
func ValidateRoleClaim(claims Claims) error {
	raw, ok := claims[ClaimRole]
	if !ok {
		return nil
	}

	value, _ := raw.(string)
	if _, valid := ParseRole(value); valid {
		return nil
	}

	allowed := make([]string, 0, len(roleHierarchy))
	for _, r := range GetAllRoles() {
		allowed = append(allowed, string(r))
	}

	return withCause(ErrInvalidClaims, fmt.Errorf("role %v is not one of %s", raw, strings.Join(allowed, ", "))).
		WithMetadata(map[string]any{
			"claim":   ClaimRole,
			"allowed": allowed,
		})
}

// IsAtLeast reports whether the role claim meets minRole. Unknown or
// missing roles never do.
func (c Claims) IsAtLeast(minRole Role) bool {
	return Role(c.Role()).IsAtLeast(minRole)
}

// RequireRole returns ErrForbidden unless the authorized request in
// state carries at least minRole.
func RequireRole(state *RequestAuth, minRole Role) error {
	if !state.Authorized() {
		return unauthorized()
	}
	if !state.Claims.IsAtLeast(minRole) {
		return forbidden()
	}
	return nil
}
