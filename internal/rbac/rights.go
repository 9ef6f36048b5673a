package rbac

import (
	"context"
	"log/slog"
)

// Rights is a set-membership predicate over permission names. The zero
// value grants nothing.
type Rights struct {
	admin bool
	perms map[string]struct{}
}

// Has reports whether the permission is held. ADMIN is a superset grant:
// it is true for every name, including names never explicitly granted.
func (r Rights) Has(name string) bool {
	if r.admin {
		return true
	}
	_, ok := r.perms[name]
	return ok
}

// HasAny reports whether at least one of the names is held.
func (r Rights) HasAny(names ...string) bool {
	for _, name := range names {
		if r.Has(name) {
			return true
		}
	}
	return false
}

// HasAll reports whether every name is held.
func (r Rights) HasAll(names ...string) bool {
	for _, name := range names {
		if !r.Has(name) {
			return false
		}
	}
	return true
}

// Resolver loads granted permission names for a user and turns them into
// effective rights. Lookup failures must never widen access, so Resolve
// fails closed: on a store error the caller gets zero-permission rights.
type Resolver struct {
	repo   GrantReader
	logger *slog.Logger
}

// GrantReader is the slice of the store the resolver needs.
type GrantReader interface {
	PermissionNamesForUser(ctx context.Context, userID string) ([]string, error)
}

// NewResolver constructs a Resolver.
func NewResolver(repo GrantReader, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Resolve computes the effective rights for a user with the given role.
func (r *Resolver) Resolve(ctx context.Context, userID string, role Role) Rights {
	names, err := r.repo.PermissionNamesForUser(ctx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("resolve permissions", slog.String("user_id", userID), slog.Any("error", err))
		}
		// Fail closed: role alone still applies, explicit grants do not.
		return Rights{admin: role == RoleAdmin}
	}
	perms := make(map[string]struct{}, len(names))
	for _, name := range names {
		perms[name] = struct{}{}
	}
	return Rights{admin: role == RoleAdmin, perms: perms}
}

// ResolveNames returns the raw granted names, falling back to an empty set
// on lookup failure. Used when building the request principal.
func (r *Resolver) ResolveNames(ctx context.Context, userID string) []string {
	names, err := r.repo.PermissionNamesForUser(ctx, userID)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("resolve permission names", slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil
	}
	return names
}
