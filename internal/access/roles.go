package access

import (
	"fmt"
	"slices"
)

// Role is a closed set of user roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Permission names a single capability, formatted as resource:action.
type Permission string

const (
	PermLockerRead    Permission = "locker:read"
	PermLockerOpen    Permission = "locker:open"
	PermLockerClose   Permission = "locker:close"
	PermActivityRead  Permission = "activity:read"
	PermActivityWrite Permission = "activity:write"
	PermActivityClear Permission = "activity:clear"
	PermAnalyticsRead Permission = "analytics:read"
	PermQRRead        Permission = "qr:read"
	PermQRWrite       Permission = "qr:write"
	PermQRGrant       Permission = "qr:grant"
	PermQRGenerate    Permission = "qr:generate"
)

// rolePermissions is the capability table. Every permission a role has is listed explicitly.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermLockerRead, PermLockerOpen, PermLockerClose,
		PermActivityRead, PermActivityWrite, PermActivityClear,
		PermAnalyticsRead,
		PermQRRead, PermQRWrite, PermQRGrant, PermQRGenerate,
	},
	RoleUser: {
		PermLockerRead, PermLockerOpen, PermLockerClose,
		PermActivityWrite,
		PermAnalyticsRead,
		PermQRRead, PermQRWrite, PermQRGrant, PermQRGenerate,
	},
	RoleGuest: {
		PermLockerRead,
		PermActivityWrite,
		PermQRRead, PermQRWrite,
	},
}

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// ParseRole parses a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Permissions returns a copy of the permissions granted to the role.
func (r Role) Permissions() []Permission {
	return slices.Clone(rolePermissions[r])
}

// Can reports whether the role grants the permission.
func Can(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// IsValid checks if the permission exists in the capability table.
func (p Permission) IsValid() bool {
	for _, perms := range rolePermissions {
		if slices.Contains(perms, p) {
			return true
		}
	}
	return false
}

// AllRoles returns all roles, most privileged first.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleUser, RoleGuest}
}
