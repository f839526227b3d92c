package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-blog-auth"
)

func TestRole_IsAtLeast(t *testing.T) {
	tests := []struct {
		role    auth.Role
		min     auth.Role
		allowed bool
	}{
		{auth.RoleUser, auth.RoleUser, true},
		{auth.RoleUser, auth.RoleEditor, false},
		{auth.RoleEditor, auth.RoleUser, true},
		{auth.RoleAdmin, auth.RoleEditor, true},
		{auth.Role("root"), auth.RoleUser, false},
		{auth.RoleAdmin, auth.Role("root"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.role.IsAtLeast(tt.min))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, ok := auth.ParseRole("editor")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleEditor, r)

	_, ok = auth.ParseRole("owner")
	assert.False(t, ok)

	assert.Equal(t, []auth.Role{auth.RoleUser, auth.RoleEditor, auth.RoleAdmin}, auth.GetAllRoles())
}

func TestRequireRole(t *testing.T) {
	state := auth.NewRequestAuth()
	assert.True(t, auth.IsUnauthorized(auth.RequireRole(state, auth.RoleUser)))

	state.Stage = auth.StageAuthorized
	state.Claims = auth.Claims{"sub": "u1", "role": "user"}
	assert.NoError(t, auth.RequireRole(state, auth.RoleUser))
	assert.True(t, auth.IsForbidden(auth.RequireRole(state, auth.RoleEditor)))

	state.Claims["role"] = "admin"
	assert.NoError(t, auth.RequireRole(state, auth.RoleEditor))
	assert.True(t, state.Claims.IsAtLeast(auth.RoleAdmin))
}

func TestValidateRoleClaim(t *testing.T) {
	for _, r := range auth.GetAllRoles() {
		assert.NoError(t, auth.ValidateRoleClaim(auth.Claims{"role": string(r)}), r)
	}

	assert.NoError(t, auth.ValidateRoleClaim(auth.Claims{"sub": "u1"}))

	err := auth.ValidateRoleClaim(auth.Claims{"role": "owner"})
	assert.Equal(t, auth.KindInvalidClaims, auth.KindOf(err))
	assert.Contains(t, errors.Unwrap(err).Error(), "user, editor, admin")

	err = auth.ValidateRoleClaim(auth.Claims{"role": nil})
	assert.Equal(t, auth.KindInvalidClaims, auth.KindOf(err))
}
