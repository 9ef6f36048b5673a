package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse, exclusive classification of a principal.
type Role string

const (
	RoleUser              Role = "USER"
	RoleTutorialModerator Role = "TUTORIAL_MODERATOR"
	RoleAdmin             Role = "ADMIN"
)

// ParseRole maps a stored value onto the closed role set. Unknown values
// collapse to USER so a corrupted row can never widen access.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleTutorialModerator:
		return RoleTutorialModerator
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Permission represents an atomic, independently grantable capability.
type Permission struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// Grant ties a permission to a user. A (user, permission) pair is unique.
type Grant struct {
	UserID       uuid.UUID
	PermissionID uuid.UUID
	CreatedAt    time.Time
}

// Principal describes the authenticated actor performing an operation.
// A nil *Principal is the anonymous viewer. Permissions holds the granted
// permission names resolved once per request; services never reach back
// into the store for rights checks.
type Principal struct {
	ID          uuid.UUID
	Name        string
	Role        Role
	Permissions []string
}

// IsAdmin reports whether the principal carries the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Rights computes the effective access rights for the principal.
func (p *Principal) Rights() Rights {
	if p == nil {
		return Rights{}
	}
	perms := make(map[string]struct{}, len(p.Permissions))
	for _, name := range p.Permissions {
		perms[name] = struct{}{}
	}
	return Rights{admin: p.Role == RoleAdmin, perms: perms}
}
