package grants

// UserRole is a role tag. Authorization is membership-based: a credential
// holds a set of roles and guards check for intersection.
type UserRole = string

const (
	// RoleUser is the baseline role every credential carries.
	RoleUser UserRole = "user"
	// RoleEditor can manage content owned by others.
	RoleEditor UserRole = "editor"
	// RoleAdmin can manage accounts and bypass ownership checks.
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleEditor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

func rolesContain(roles []UserRole, role UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func rolesIntersect(held, wanted []UserRole) bool {
	for _, w := range wanted {
		if rolesContain(held, w) {
			return true
		}
	}
	return false
}
