package tutorials

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Store defines persistence operations the service depends on.
type Store interface {
	CreateTutorial(ctx context.Context, t Tutorial) (Tutorial, error)
	GetTutorial(ctx context.Context, id uuid.UUID) (Tutorial, error)
	UpdateTutorial(ctx context.Context, t Tutorial) (Tutorial, error)
	DeleteTutorial(ctx context.Context, id uuid.UUID) error
	ListTutorials(ctx context.Context, filter ListFilter) ([]Tutorial, error)
	UpsertRating(ctx context.Context, userID, tutorialID uuid.UUID, score int) (Rating, error)
	RatingsForTutorial(ctx context.Context, tutorialID uuid.UUID) ([]Rating, error)
	RatingsByTutorial(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Rating, error)
	CommentCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	GetComment(ctx context.Context, id uuid.UUID) (Comment, error)
	CommentsForTutorial(ctx context.Context, tutorialID uuid.UUID) ([]Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries the fields accepted at creation.
type CreateInput struct {
	Title   string
	Content string
}

// UpdateInput carries the editable fields.
type UpdateInput struct {
	Title       string
	Content     string
	IsPublished bool
}

// Service implements the tutorial lifecycle. Every operation takes the
// requesting principal explicitly; authorization guards run before any
// store mutation.
type Service struct {
	store Store
	audit *shared.AuditLogger
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, audit *shared.AuditLogger) *Service {
	return &Service{store: store, audit: audit, now: time.Now}
}

// Create inserts a new tutorial. It starts published; validation is set
// immediately when the creator is an admin or holds the bypass permission,
// otherwise the tutorial waits for a moderator.
func (s *Service) Create(ctx context.Context, p *rbac.Principal, in CreateInput) (Tutorial, error) {
	if p == nil {
		return Tutorial{}, shared.ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return Tutorial{}, fmt.Errorf("%w: title and content required", shared.ErrInvalidInput)
	}
	now := s.now().UTC()
	t := Tutorial{
		ID:          uuid.New(),
		AuthorID:    p.ID,
		Title:       title,
		Content:     in.Content,
		IsPublished: true,
		IsValidated: p.IsAdmin() || p.Rights().Has(shared.PermBypassTutorialValidation),
		PublishedAt: &now,
	}
	created, err := s.store.CreateTutorial(ctx, t)
	if err != nil {
		return Tutorial{}, err
	}
	s.record(ctx, p, "tutorial.create", created.ID, map[string]any{"validated": created.IsValidated})
	return created, nil
}

// Update edits title, content and the publish flag. Only the author or an
// admin may edit. PublishedAt is set on the first false-to-true publish
// transition and never touched again, including unpublish/republish.
func (s *Service) Update(ctx context.Context, p *rbac.Principal, id uuid.UUID, in UpdateInput) (Tutorial, error) {
	if p == nil {
		return Tutorial{}, shared.ErrUnauthenticated
	}
	t, err := s.store.GetTutorial(ctx, id)
	if err != nil {
		return Tutorial{}, err
	}
	if t.AuthorID != p.ID && !p.IsAdmin() {
		return Tutorial{}, shared.ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return Tutorial{}, fmt.Errorf("%w: title and content required", shared.ErrInvalidInput)
	}
	if !t.IsPublished && in.IsPublished && t.PublishedAt == nil {
		now := s.now().UTC()
		t.PublishedAt = &now
	}
	t.Title = title
	t.Content = in.Content
	t.IsPublished = in.IsPublished
	updated, err := s.store.UpdateTutorial(ctx, t)
	if err != nil {
		return Tutorial{}, err
	}
	s.record(ctx, p, "tutorial.update", updated.ID, map[string]any{"published": updated.IsPublished})
	return updated, nil
}

// SetValidated toggles the moderation flag. Admins and holders of the
// VALIDATE_TUTORIAL permission (tutorial moderators) may do this.
func (s *Service) SetValidated(ctx context.Context, p *rbac.Principal, id uuid.UUID, validated bool) (Tutorial, error) {
	if p == nil {
		return Tutorial{}, shared.ErrUnauthenticated
	}
	if !p.IsAdmin() && !p.Rights().Has(shared.PermValidateTutorial) {
		return Tutorial{}, shared.ErrForbidden
	}
	t, err := s.store.GetTutorial(ctx, id)
	if err != nil {
		return Tutorial{}, err
	}
	t.IsValidated = validated
	updated, err := s.store.UpdateTutorial(ctx, t)
	if err != nil {
		return Tutorial{}, err
	}
	s.record(ctx, p, "tutorial.validate", updated.ID, map[string]any{"validated": validated})
	return updated, nil
}

// Delete removes a tutorial. Admin only.
func (s *Service) Delete(ctx context.Context, p *rbac.Principal, id uuid.UUID) error {
	if p == nil {
		return shared.ErrUnauthenticated
	}
	if !p.IsAdmin() {
		return shared.ErrForbidden
	}
	if err := s.store.DeleteTutorial(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, "tutorial.delete", id, nil)
	return nil
}

// Get fetches one tutorial with its derived statistics. A tutorial hidden
// by the visibility rule reports NotFound, never Forbidden, so callers
// cannot probe for existence.
func (s *Service) Get(ctx context.Context, p *rbac.Principal, id uuid.UUID) (WithStats, error) {
	t, err := s.store.GetTutorial(ctx, id)
	if err != nil {
		return WithStats{}, err
	}
	if !t.VisibleTo(p) {
		return WithStats{}, shared.ErrNotFound
	}
	var (
		ratings []Rating
		counts  map[uuid.UUID]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ratings, err = s.store.RatingsForTutorial(gctx, t.ID)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.CommentCounts(gctx, []uuid.UUID{t.ID})
		return err
	})
	if err := g.Wait(); err != nil {
		return WithStats{}, err
	}
	return WithStats{Tutorial: t, Stats: BuildStats(ratings, counts[t.ID])}, nil
}

// List returns the tutorials the principal may see, newest first, with
// statistics recomputed from the raw rating rows on every call.
func (s *Service) List(ctx context.Context, p *rbac.Principal, filter ListFilter) ([]WithStats, error) {
	all, err := s.store.ListTutorials(ctx, filter)
	if err != nil {
		return nil, err
	}
	visible := make([]Tutorial, 0, len(all))
	ids := make([]uuid.UUID, 0, len(all))
	for _, t := range all {
		if t.VisibleTo(p) {
			visible = append(visible, t)
			ids = append(ids, t.ID)
		}
	}
	var (
		ratings map[uuid.UUID][]Rating
		counts  map[uuid.UUID]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ratings, err = s.store.RatingsByTutorial(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.CommentCounts(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]WithStats, 0, len(visible))
	for _, t := range visible {
		out = append(out, WithStats{Tutorial: t, Stats: BuildStats(ratings[t.ID], counts[t.ID])})
	}
	return out, nil
}

// Rate upserts the principal's score for a tutorial. The score must be an
// integer in [1,5]; validation runs before any store access so a rejected
// request leaves the store untouched.
func (s *Service) Rate(ctx context.Context, p *rbac.Principal, tutorialID uuid.UUID, score int) (Rating, error) {
	if p == nil {
		return Rating{}, shared.ErrUnauthenticated
	}
	if score < 1 || score > 5 {
		return Rating{}, fmt.Errorf("%w: score must be between 1 and 5", shared.ErrInvalidInput)
	}
	t, err := s.store.GetTutorial(ctx, tutorialID)
	if err != nil {
		return Rating{}, err
	}
	if !t.VisibleTo(p) {
		return Rating{}, shared.ErrNotFound
	}
	return s.store.UpsertRating(ctx, p.ID, t.ID, score)
}

// ListComments returns the comments on a tutorial the principal may see.
func (s *Service) ListComments(ctx context.Context, p *rbac.Principal, tutorialID uuid.UUID) ([]Comment, error) {
	t, err := s.store.GetTutorial(ctx, tutorialID)
	if err != nil {
		return nil, err
	}
	if !t.VisibleTo(p) {
		return nil, shared.ErrNotFound
	}
	return s.store.CommentsForTutorial(ctx, t.ID)
}

// AddComment posts a comment on a visible tutorial.
func (s *Service) AddComment(ctx context.Context, p *rbac.Principal, tutorialID uuid.UUID, content string) (Comment, error) {
	if p == nil {
		return Comment{}, shared.ErrUnauthenticated
	}
	if strings.TrimSpace(content) == "" {
		return Comment{}, fmt.Errorf("%w: comment content required", shared.ErrInvalidInput)
	}
	t, err := s.store.GetTutorial(ctx, tutorialID)
	if err != nil {
		return Comment{}, err
	}
	if !t.VisibleTo(p) {
		return Comment{}, shared.ErrNotFound
	}
	return s.store.CreateComment(ctx, Comment{
		ID:         uuid.New(),
		TutorialID: t.ID,
		AuthorID:   p.ID,
		Content:    content,
	})
}

// DeleteComment removes a comment. Existence is checked first: a missing
// comment is NotFound for everyone; an existing one may be deleted by its
// author or an admin only.
func (s *Service) DeleteComment(ctx context.Context, p *rbac.Principal, commentID uuid.UUID) error {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if p == nil {
		return shared.ErrUnauthenticated
	}
	if c.AuthorID != p.ID && !p.IsAdmin() {
		return shared.ErrForbidden
	}
	return s.store.DeleteComment(ctx, c.ID)
}

func (s *Service) record(ctx context.Context, p *rbac.Principal, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.ID.String(),
		Action:   action,
		Entity:   "tutorial",
		EntityID: id.String(),
		Meta:     meta,
	})
}
