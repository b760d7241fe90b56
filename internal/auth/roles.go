// Package auth carries the identity attached to authorized requests and
// the role/capability rules the rest of the service relies on.
package auth

import "fmt"

// Role is the closed set of principals the service knows about. Raw role
// strings only exist at the JWT boundary.
type Role int

const (
	RoleUser Role = iota
	RoleEventAdmin
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleEventAdmin:
		return "event_admin"
	case RoleSuperAdmin:
		return "super_admin"
	}
	return "unknown"
}

func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "event_admin":
		return RoleEventAdmin, nil
	case "super_admin":
		return RoleSuperAdmin, nil
	}
	return RoleUser, fmt.Errorf("unknown role %q", s)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   int64
	Role Role
}

// IsAdmin reports whether the principal may reach admin surfaces at all.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleEventAdmin || p.Role == RoleSuperAdmin
}

// CanManageEvent reports whether the principal may act on an event owned
// by ownerID. Event admins own their events only; a super admin bypasses
// ownership.
func (p Principal) CanManageEvent(ownerID int64) bool {
	switch p.Role {
	case RoleSuperAdmin:
		return true
	case RoleEventAdmin:
		return p.ID == ownerID
	}
	return false
}
