package model

// Role represents a row in the `user_roles` collection.  Users do not
// reference roles by ID: a user's role set is a list of names, so
// deleting a role leaves stale names behind on users.  Access policies
// treat those as ordinary strings.
type Role struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Well-known role names used by the canned access policies.
const (
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)
