package jams

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/playforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence for jams.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jamColumns = `id, title, start_date, end_date, itch_io_url, created_at, updated_at`

func scanJam(row pgx.Row) (Jam, error) {
	var j Jam
	err := row.Scan(&j.ID, &j.Title, &j.StartDate, &j.EndDate, &j.ItchIoURL, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// CreateJam inserts a jam.
func (r *Repository) CreateJam(ctx context.Context, j Jam) (Jam, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO game_jams (id, title, start_date, end_date, itch_io_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+jamColumns,
		j.ID, j.Title, j.StartDate, j.EndDate, j.ItchIoURL)
	out, err := scanJam(row)
	if err != nil {
		return Jam{}, storeErr("create jam", err)
	}
	return out, nil
}

// GetJam fetches a jam by ID.
func (r *Repository) GetJam(ctx context.Context, id uuid.UUID) (Jam, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jamColumns+` FROM game_jams WHERE id = $1`, id)
	j, err := scanJam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Jam{}, fmt.Errorf("jams: %w", shared.ErrNotFound)
		}
		return Jam{}, storeErr("get jam", err)
	}
	return j, nil
}

// ListJams returns all jams, newest start first.
func (r *Repository) ListJams(ctx context.Context) ([]Jam, error) {
	return r.query(ctx, `SELECT `+jamColumns+` FROM game_jams ORDER BY start_date DESC`)
}

// ListUpcoming returns jams starting at or after now, soonest first.
func (r *Repository) ListUpcoming(ctx context.Context, now time.Time) ([]Jam, error) {
	return r.query(ctx, `SELECT `+jamColumns+` FROM game_jams WHERE start_date >= $1 ORDER BY start_date ASC`, now)
}

// UpdateJam rewrites a jam.
func (r *Repository) UpdateJam(ctx context.Context, j Jam) (Jam, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE game_jams
		SET title = $2, start_date = $3, end_date = $4, itch_io_url = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+jamColumns,
		j.ID, j.Title, j.StartDate, j.EndDate, j.ItchIoURL)
	out, err := scanJam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Jam{}, fmt.Errorf("jams: %w", shared.ErrNotFound)
		}
		return Jam{}, storeErr("update jam", err)
	}
	return out, nil
}

// DeleteJam removes a jam.
func (r *Repository) DeleteJam(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM game_jams WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete jam", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("jams: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Jam, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr("list jams", err)
	}
	defer rows.Close()

	var out []Jam
	for rows.Next() {
		j, err := scanJam(rows)
		if err != nil {
			return nil, storeErr("scan jam", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func storeErr(op string, err error) error {
	return fmt.Errorf("jams: %s: %w: %w", op, shared.ErrUnavailable, err)
}
