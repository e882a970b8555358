package models

// RoleAdmin is the role that grants moderation and direct-write access.
const RoleAdmin = "admin"

// Identity is the authenticated caller, passed explicitly into the moderation
// engine and write paths. There is no ambient session state.
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
