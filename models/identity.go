package models

// Identity is the authenticated caller of a single request. It is built by the
// auth middleware from the token claims and handed to services explicitly.
type Identity struct {
	UserID uint
	Name   string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
