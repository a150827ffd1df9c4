package users

import "strings"

// Role represents a user's access level on the wellness platform. The set is
// closed: role checks go through HasRequiredRole rather than ad-hoc string
// comparisons, so guard variants cannot drift apart.
type Role string

const (
	RoleUser      Role = "USER"      // Regular customer/member account
	RoleModerator Role = "MODERATOR" // Can manage content, orders, and categories
	RoleAdmin     Role = "ADMIN"     // Full management access, including shipping config
)

// Valid reports whether r is one of the known role tags.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalises a role string from the API into a Role tag.
// Unknown values are preserved as-is so a new server-side role fails role
// checks rather than being silently promoted or demoted.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// User is the server-owned account record, read-only from the client's
// perspective. Field names follow the wellness API's JSON contract.
type User struct {
	ID              string `json:"id,omitempty"`
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Phone           string `json:"phone,omitempty"`
	ProfilePicture  string `json:"profilePicture,omitempty"`
	City            string `json:"city,omitempty"`
	Address         string `json:"address,omitempty"`
	Bio             string `json:"bio,omitempty"`
	Role            Role   `json:"role,omitempty"`
	IsEmailVerified bool   `json:"isEmailVerified,omitempty"`
	IsActive        bool   `json:"isActive,omitempty"`
}

// FullName returns the display name for the user.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsStaff reports whether the user may enter the moderation area.
func (u *User) IsStaff() bool {
	return HasRequiredRole(u, RoleAdmin, RoleModerator)
}

// HasRequiredRole is the single role predicate shared by all guard variants.
// A nil user never passes. An empty required set means any signed-in user
// qualifies.
func HasRequiredRole(u *User, required ...Role) bool {
	if u == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if u.Role == r {
			return true
		}
	}
	return false
}
