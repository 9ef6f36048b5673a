package badges

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/playforge/internal/platform/db"
	"github.com/playforge/playforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Award uniqueness is
// carried by the (user_id, badge_id) constraint; concurrent duplicate
// awards collapse to one winner and one Conflict.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateBadge inserts a catalog entry.
func (r *Repository) CreateBadge(ctx context.Context, b Badge) (Badge, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO badges (id, name, description, image_url, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, name, description, image_url, created_at`,
		b.ID, b.Name, b.Description, b.ImageURL)
	out, err := scanBadge(row)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Badge{}, fmt.Errorf("badges: name taken: %w", shared.ErrConflict)
		}
		return Badge{}, storeErr("create badge", err)
	}
	return out, nil
}

// GetBadge fetches a badge by ID.
func (r *Repository) GetBadge(ctx context.Context, id uuid.UUID) (Badge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, image_url, created_at
		FROM badges WHERE id = $1`, id)
	b, err := scanBadge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Badge{}, fmt.Errorf("badges: %w", shared.ErrNotFound)
		}
		return Badge{}, storeErr("get badge", err)
	}
	return b, nil
}

// ListBadges returns the whole catalog with per-badge award counts.
func (r *Repository) ListBadges(ctx context.Context) ([]BadgeWithUsage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.name, b.description, b.image_url, b.created_at, COUNT(a.id)
		FROM badges b
		LEFT JOIN badge_awards a ON a.badge_id = b.id
		GROUP BY b.id`)
	if err != nil {
		return nil, storeErr("list badges", err)
	}
	defer rows.Close()

	var out []BadgeWithUsage
	for rows.Next() {
		var b BadgeWithUsage
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.ImageURL, &b.CreatedAt, &b.AwardCount); err != nil {
			return nil, storeErr("scan badge", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBadge rewrites a badge's descriptive fields.
func (r *Repository) UpdateBadge(ctx context.Context, b Badge) (Badge, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE badges SET name = $2, description = $3, image_url = $4
		WHERE id = $1
		RETURNING id, name, description, image_url, created_at`,
		b.ID, b.Name, b.Description, b.ImageURL)
	out, err := scanBadge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Badge{}, fmt.Errorf("badges: %w", shared.ErrNotFound)
		}
		return Badge{}, storeErr("update badge", err)
	}
	return out, nil
}

// DeleteBadge removes a badge together with its awards.
func (r *Repository) DeleteBadge(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM badge_awards WHERE badge_id = $1`, id); err != nil {
			return storeErr("delete badge awards", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM badges WHERE id = $1`, id)
		if err != nil {
			return storeErr("delete badge", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("badges: %w", shared.ErrNotFound)
		}
		return nil
	})
}

// CreateAward attaches a badge to a user. A second award of the same badge
// hits the unique constraint and surfaces as Conflict.
func (r *Repository) CreateAward(ctx context.Context, a Award) (Award, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO badge_awards (id, user_id, badge_id, awarded_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, user_id, badge_id, awarded_at`,
		a.ID, a.UserID, a.BadgeID)
	var out Award
	if err := row.Scan(&out.ID, &out.UserID, &out.BadgeID, &out.AwardedAt); err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Award{}, fmt.Errorf("badges: award exists: %w", shared.ErrConflict)
		}
		return Award{}, storeErr("create award", err)
	}
	return out, nil
}

// DeleteAward removes a user's badge. Reports whether a row was removed.
func (r *Repository) DeleteAward(ctx context.Context, userID, badgeID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM badge_awards WHERE user_id = $1 AND badge_id = $2`, userID, badgeID)
	if err != nil {
		return false, storeErr("delete award", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanBadge(row pgx.Row) (Badge, error) {
	var b Badge
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.ImageURL, &b.CreatedAt)
	return b, err
}

func storeErr(op string, err error) error {
	return fmt.Errorf("badges: %s: %w: %w", op, shared.ErrUnavailable, err)
}
