package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/playforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountUsers returns the directory size.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, storeErr("count users", err)
	}
	return total, nil
}

// ListUsers returns one page of users ordered by name.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, COALESCE(image, ''), role, created_at, updated_at FROM users ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.Image, &user.Role, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// GetUser fetches a single user by ID.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, COALESCE(image, ''), role, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.Image, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, storeErr("get user", err)
	}
	return user, nil
}

// BadgesForUser returns the badges awarded to a user, newest first.
func (r *Repository) BadgesForUser(ctx context.Context, id uuid.UUID) ([]AwardedBadge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.name, b.description, COALESCE(b.image_url, ''), ba.awarded_at
		FROM badge_awards ba
		JOIN badges b ON b.id = ba.badge_id
		WHERE ba.user_id = $1
		ORDER BY ba.awarded_at DESC`, id)
	if err != nil {
		return nil, storeErr("badges for user", err)
	}
	defer rows.Close()
	var badges []AwardedBadge
	for rows.Next() {
		var b AwardedBadge
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.ImageURL, &b.AwardedAt); err != nil {
			return nil, storeErr("scan badge", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("badges for user", err)
	}
	return badges, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("users: %s: %w: %w", op, shared.ErrUnavailable, err)
}
