package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/shared"
)

// Store defines persistence operations the service depends on.
type Store interface {
	GrantReader
	ListPermissions(ctx context.Context) ([]Permission, error)
	FindPermissionByName(ctx context.Context, name string) (Permission, error)
	EnsurePermission(ctx context.Context, name, description string) (Permission, error)
	GrantPermission(ctx context.Context, userID, permissionID uuid.UUID) error
	RevokePermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error)
}

// Service orchestrates permission management. Grant and revoke are
// ADMIN-only; the guard runs before any store mutation.
type Service struct {
	store Store
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(store Store, audit *shared.AuditLogger) *Service {
	return &Service{store: store, audit: audit}
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context, requester *Principal) ([]Permission, error) {
	if requester == nil {
		return nil, shared.ErrUnauthenticated
	}
	if !requester.IsAdmin() {
		return nil, shared.ErrForbidden
	}
	return s.store.ListPermissions(ctx)
}

// Grant attaches the named permission to a user. The grant is idempotent:
// repeating it succeeds without creating a second row.
func (s *Service) Grant(ctx context.Context, requester *Principal, userID uuid.UUID, name string) error {
	if requester == nil {
		return shared.ErrUnauthenticated
	}
	if !requester.IsAdmin() {
		return shared.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: permission name required", shared.ErrInvalidInput)
	}
	perm, err := s.store.EnsurePermission(ctx, name, describePermission(name))
	if err != nil {
		return err
	}
	if err := s.store.GrantPermission(ctx, userID, perm.ID); err != nil {
		return err
	}
	s.record(ctx, requester, "permission.grant", userID, map[string]any{"permission": name})
	return nil
}

// Revoke detaches the named permission from a user. Revoking a permission
// that was never granted still succeeds; an unknown permission name is
// NotFound.
func (s *Service) Revoke(ctx context.Context, requester *Principal, userID uuid.UUID, name string) error {
	if requester == nil {
		return shared.ErrUnauthenticated
	}
	if !requester.IsAdmin() {
		return shared.ErrForbidden
	}
	perm, err := s.store.FindPermissionByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if _, err := s.store.RevokePermission(ctx, userID, perm.ID); err != nil {
		return err
	}
	s.record(ctx, requester, "permission.revoke", userID, map[string]any{"permission": name})
	return nil
}

// SyncGrant attaches a permission outside a requester context, used by the
// login bookkeeping flow. The caller reports its outcome independently of
// the operation that triggered it.
func (s *Service) SyncGrant(ctx context.Context, userID uuid.UUID, name string) error {
	perm, err := s.store.EnsurePermission(ctx, name, describePermission(name))
	if err != nil {
		return err
	}
	return s.store.GrantPermission(ctx, userID, perm.ID)
}

func (s *Service) record(ctx context.Context, requester *Principal, action string, subject uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  requester.ID.String(),
		Action:   action,
		Entity:   "user",
		EntityID: subject.String(),
		Meta:     meta,
	})
}

func describePermission(name string) string {
	return "Permission to " + strings.ToLower(strings.ReplaceAll(name, "_", " "))
}
