package tutorials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playforge/playforge/internal/platform/db"
	"github.com/playforge/playforge/internal/shared"
)

// ListFilter narrows tutorial listings.
type ListFilter struct {
	AuthorID *uuid.UUID
}

// Repository provides PostgreSQL backed persistence. Rating uniqueness is
// carried by the (user_id, tutorial_id) constraint; the upsert serializes
// concurrent writes to a single final row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tutorialColumns = `t.id, t.author_id, COALESCE(u.name, ''), t.title, t.content, t.is_published, t.is_validated, t.published_at, t.created_at, t.updated_at`

func scanTutorial(row pgx.Row) (Tutorial, error) {
	var t Tutorial
	err := row.Scan(&t.ID, &t.AuthorID, &t.AuthorName, &t.Title, &t.Content, &t.IsPublished, &t.IsValidated, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// CreateTutorial inserts a new tutorial.
func (r *Repository) CreateTutorial(ctx context.Context, t Tutorial) (Tutorial, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tutorials (id, author_id, title, content, is_published, is_validated, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		t.ID, t.AuthorID, t.Title, t.Content, t.IsPublished, t.IsValidated, t.PublishedAt)
	if err != nil {
		return Tutorial{}, storeErr("create tutorial", err)
	}
	return r.GetTutorial(ctx, t.ID)
}

// GetTutorial fetches a tutorial by ID.
func (r *Repository) GetTutorial(ctx context.Context, id uuid.UUID) (Tutorial, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tutorialColumns+`
		FROM tutorials t
		LEFT JOIN users u ON u.id = t.author_id
		WHERE t.id = $1`, id)
	t, err := scanTutorial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tutorial{}, shared.ErrNotFound
		}
		return Tutorial{}, storeErr("get tutorial", err)
	}
	return t, nil
}

// UpdateTutorial persists title, content and lifecycle flags.
func (r *Repository) UpdateTutorial(ctx context.Context, t Tutorial) (Tutorial, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tutorials
		SET title = $2, content = $3, is_published = $4, is_validated = $5, published_at = $6, updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.Content, t.IsPublished, t.IsValidated, t.PublishedAt)
	if err != nil {
		return Tutorial{}, storeErr("update tutorial", err)
	}
	if tag.RowsAffected() == 0 {
		return Tutorial{}, shared.ErrNotFound
	}
	return r.GetTutorial(ctx, t.ID)
}

// DeleteTutorial removes a tutorial and its dependents.
func (r *Repository) DeleteTutorial(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM ratings WHERE tutorial_id = $1`, id); err != nil {
			return storeErr("delete tutorial ratings", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE tutorial_id = $1`, id); err != nil {
			return storeErr("delete tutorial comments", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tutorials WHERE id = $1`, id)
		if err != nil {
			return storeErr("delete tutorial", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ListTutorials returns tutorials newest first, optionally by author.
func (r *Repository) ListTutorials(ctx context.Context, filter ListFilter) ([]Tutorial, error) {
	query := `
		SELECT ` + tutorialColumns + `
		FROM tutorials t
		LEFT JOIN users u ON u.id = t.author_id`
	var args []any
	if filter.AuthorID != nil {
		query += ` WHERE t.author_id = $1`
		args = append(args, *filter.AuthorID)
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list tutorials", err)
	}
	defer rows.Close()
	var out []Tutorial
	for rows.Next() {
		t, err := scanTutorial(rows)
		if err != nil {
			return nil, storeErr("scan tutorial", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list tutorials", err)
	}
	return out, nil
}

// UpsertRating creates or replaces the rating for (userID, tutorialID).
// The unique constraint makes concurrent upserts on the same key converge
// on one row.
func (r *Repository) UpsertRating(ctx context.Context, userID, tutorialID uuid.UUID, score int) (Rating, error) {
	var rating Rating
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ratings (id, user_id, tutorial_id, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id, tutorial_id) DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
		RETURNING id, user_id, tutorial_id, score, created_at, updated_at`,
		uuid.New(), userID, tutorialID, score).
		Scan(&rating.ID, &rating.UserID, &rating.TutorialID, &rating.Score, &rating.CreatedAt, &rating.UpdatedAt)
	if err != nil {
		return Rating{}, storeErr("upsert rating", err)
	}
	return rating, nil
}

// RatingsForTutorial returns every rating for one tutorial.
func (r *Repository) RatingsForTutorial(ctx context.Context, tutorialID uuid.UUID) ([]Rating, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, tutorial_id, score, created_at, updated_at
		FROM ratings WHERE tutorial_id = $1`, tutorialID)
	if err != nil {
		return nil, storeErr("ratings for tutorial", err)
	}
	defer rows.Close()
	var out []Rating
	for rows.Next() {
		var rating Rating
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.TutorialID, &rating.Score, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
			return nil, storeErr("scan rating", err)
		}
		out = append(out, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("ratings for tutorial", err)
	}
	return out, nil
}

// RatingsByTutorial groups all ratings for the given tutorials.
func (r *Repository) RatingsByTutorial(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Rating, error) {
	grouped := make(map[uuid.UUID][]Rating, len(ids))
	if len(ids) == 0 {
		return grouped, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, tutorial_id, score, created_at, updated_at
		FROM ratings WHERE tutorial_id = ANY($1)`, ids)
	if err != nil {
		return nil, storeErr("ratings by tutorial", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rating Rating
		if err := rows.Scan(&rating.ID, &rating.UserID, &rating.TutorialID, &rating.Score, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
			return nil, storeErr("scan rating", err)
		}
		grouped[rating.TutorialID] = append(grouped[rating.TutorialID], rating)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("ratings by tutorial", err)
	}
	return grouped, nil
}

// CommentCounts returns the number of comments per tutorial.
func (r *Repository) CommentCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT tutorial_id, COUNT(*) FROM comments WHERE tutorial_id = ANY($1) GROUP BY tutorial_id`, ids)
	if err != nil {
		return nil, storeErr("comment counts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, storeErr("scan comment count", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("comment counts", err)
	}
	return counts, nil
}

// CreateComment inserts a comment.
func (r *Repository) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO comments (id, tutorial_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		c.ID, c.TutorialID, c.AuthorID, c.Content)
	if err != nil {
		return Comment{}, storeErr("create comment", err)
	}
	return r.GetComment(ctx, c.ID)
}

// GetComment fetches a comment by ID.
func (r *Repository) GetComment(ctx context.Context, id uuid.UUID) (Comment, error) {
	var c Comment
	err := r.pool.QueryRow(ctx, `
		SELECT c.id, c.tutorial_id, c.author_id, COALESCE(u.name, ''), c.content, c.created_at
		FROM comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.id = $1`, id).
		Scan(&c.ID, &c.TutorialID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, shared.ErrNotFound
		}
		return Comment{}, storeErr("get comment", err)
	}
	return c, nil
}

// CommentsForTutorial returns comments newest first.
func (r *Repository) CommentsForTutorial(ctx context.Context, tutorialID uuid.UUID) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.tutorial_id, c.author_id, COALESCE(u.name, ''), c.content, c.created_at
		FROM comments c
		LEFT JOIN users u ON u.id = c.author_id
		WHERE c.tutorial_id = $1
		ORDER BY c.created_at DESC`, tutorialID)
	if err != nil {
		return nil, storeErr("comments for tutorial", err)
	}
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TutorialID, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, storeErr("scan comment", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("comments for tutorial", err)
	}
	return out, nil
}

// DeleteComment removes a comment.
func (r *Repository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete comment", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("tutorials: %s: %w: %w", op, shared.ErrUnavailable, err)
}
