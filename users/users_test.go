package users_test

import (
	"testing"

	"github.com/jrsteele09/go-wellness-portal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasRequiredRole(t *testing.T) {
	admin := &users.User{ID: "u1", Role: users.RoleAdmin}
	moderator := &users.User{ID: "u2", Role: users.RoleModerator}
	regular := &users.User{ID: "u3", Role: users.RoleUser}

	t.Run("nil user never passes", func(t *testing.T) {
		assert.False(t, users.HasRequiredRole(nil))
		assert.False(t, users.HasRequiredRole(nil, users.RoleAdmin))
	})

	t.Run("empty required set means any signed-in user", func(t *testing.T) {
		assert.True(t, users.HasRequiredRole(regular))
		assert.True(t, users.HasRequiredRole(admin))
	})

	t.Run("staff set admits admin and moderator only", func(t *testing.T) {
		staff := []users.Role{users.RoleAdmin, users.RoleModerator}
		assert.True(t, users.HasRequiredRole(admin, staff...))
		assert.True(t, users.HasRequiredRole(moderator, staff...))
		assert.False(t, users.HasRequiredRole(regular, staff...))
	})

	t.Run("unknown role fails every non-empty set", func(t *testing.T) {
		mystery := &users.User{ID: "u4", Role: users.Role("SUPERVISOR")}
		assert.False(t, users.HasRequiredRole(mystery, users.RoleAdmin, users.RoleModerator))
		assert.True(t, users.HasRequiredRole(mystery)) // still a signed-in user
	})
}

func TestParseRole(t *testing.T) {
	require.Equal(t, users.RoleAdmin, users.ParseRole(" admin "))
	require.Equal(t, users.RoleModerator, users.ParseRole("Moderator"))
	require.Equal(t, users.Role("SUPERVISOR"), users.ParseRole("supervisor"))
	require.False(t, users.ParseRole("supervisor").Valid())
	require.True(t, users.ParseRole("user").Valid())
}

func TestIsStaff(t *testing.T) {
	assert.True(t, (&users.User{Role: users.RoleAdmin}).IsStaff())
	assert.True(t, (&users.User{Role: users.RoleModerator}).IsStaff())
	assert.False(t, (&users.User{Role: users.RoleUser}).IsStaff())
}

func TestFullName(t *testing.T) {
	u := &users.User{FirstName: "Ana", LastName: "Silva"}
	assert.Equal(t, "Ana Silva", u.FullName())
	assert.Equal(t, "Ana", (&users.User{FirstName: "Ana"}).FullName())
}
