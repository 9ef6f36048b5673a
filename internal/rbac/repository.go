package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/playforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for permissions and
// grants. The (user_id, permission_id) unique constraint carries the
// idempotent-grant invariant.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, storeErr("list permissions", err)
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, storeErr("scan permission", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list permissions", err)
	}
	return perms, nil
}

// FindPermissionByName fetches a permission by its unique name.
func (r *Repository) FindPermissionByName(ctx context.Context, name string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `SELECT id, name, description FROM permissions WHERE name = $1`, name).
		Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, storeErr("find permission", err)
	}
	return p, nil
}

// EnsurePermission upserts a permission by name.
func (r *Repository) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, name, description`,
		uuid.New(), name, description).
		Scan(&p.ID, &p.Name, &p.Description)
	if err != nil {
		return Permission{}, storeErr("ensure permission", err)
	}
	return p, nil
}

// PermissionNamesForUser returns the granted permission names for a user.
func (r *Repository) PermissionNamesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.name
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, storeErr("permissions for user", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("scan permission name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("permissions for user", err)
	}
	return names, nil
}

// GrantPermission attaches a permission to a user. Granting twice is a
// no-op success; the unique constraint absorbs the duplicate.
func (r *Repository) GrantPermission(ctx context.Context, userID, permissionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_permissions (user_id, permission_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, permission_id) DO NOTHING`, userID, permissionID)
	if err != nil {
		return storeErr("grant permission", err)
	}
	return nil
}

// RevokePermission detaches a permission from a user and reports whether
// a grant row was actually removed.
func (r *Repository) RevokePermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
	if err != nil {
		return false, storeErr("revoke permission", err)
	}
	return tag.RowsAffected() > 0, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("rbac: %s: %w: %w", op, shared.ErrUnavailable, err)
}
