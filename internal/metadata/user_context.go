package metadata

// UserContext represents the authenticated caller, set by auth middleware.
type UserContext struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId"`
	Roles          []string `json:"roles"`
}

// HasRole checks whether the user has a specific role.
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks whether the user has the admin role.
func (u *UserContext) IsAdmin() bool {
	return u.HasRole("admin")
}

// Organization returns the organization scope for persisted preferences,
// falling back to the user id for callers outside any organization.
func (u *UserContext) Organization() string {
	if u == nil {
		return ""
	}
	if u.OrganizationID != "" {
		return u.OrganizationID
	}
	return u.ID
}
