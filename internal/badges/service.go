package badges

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Store defines persistence operations the service depends on.
type Store interface {
	CreateBadge(ctx context.Context, b Badge) (Badge, error)
	GetBadge(ctx context.Context, id uuid.UUID) (Badge, error)
	ListBadges(ctx context.Context) ([]BadgeWithUsage, error)
	UpdateBadge(ctx context.Context, b Badge) (Badge, error)
	DeleteBadge(ctx context.Context, id uuid.UUID) error
	CreateAward(ctx context.Context, a Award) (Award, error)
	DeleteAward(ctx context.Context, userID, badgeID uuid.UUID) (bool, error)
}

// Service orchestrates the badge catalog and award ledger. Catalog reads
// are public; every mutation is ADMIN-only and guarded before the store
// is touched.
type Service struct {
	store    Store
	audit    *shared.AuditLogger
	collator *collate.Collator
}

// NewService constructs a Service.
func NewService(store Store, audit *shared.AuditLogger) *Service {
	return &Service{
		store:    store,
		audit:    audit,
		collator: collate.New(language.English, collate.IgnoreCase),
	}
}

// BadgeInput carries the editable badge fields.
type BadgeInput struct {
	Name        string
	Description string
	ImageURL    string
}

// List returns the catalog ordered by collated name.
func (s *Service) List(ctx context.Context) ([]BadgeWithUsage, error) {
	out, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, err
	}
	s.collator.Sort(badgesByName(out))
	return out, nil
}

// Create adds a badge to the catalog.
func (s *Service) Create(ctx context.Context, requester *rbac.Principal, in BadgeInput) (Badge, error) {
	if err := requireAdmin(requester); err != nil {
		return Badge{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Badge{}, fmt.Errorf("%w: badge name required", shared.ErrInvalidInput)
	}
	b, err := s.store.CreateBadge(ctx, Badge{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	})
	if err != nil {
		return Badge{}, err
	}
	s.record(ctx, requester, "badge.create", b.ID, map[string]any{"name": b.Name})
	return b, nil
}

// Update rewrites a badge's descriptive fields.
func (s *Service) Update(ctx context.Context, requester *rbac.Principal, id uuid.UUID, in BadgeInput) (Badge, error) {
	if err := requireAdmin(requester); err != nil {
		return Badge{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Badge{}, fmt.Errorf("%w: badge name required", shared.ErrInvalidInput)
	}
	b, err := s.store.UpdateBadge(ctx, Badge{
		ID:          id,
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	})
	if err != nil {
		return Badge{}, err
	}
	s.record(ctx, requester, "badge.update", b.ID, map[string]any{"name": b.Name})
	return b, nil
}

// Delete removes a badge and every award of it.
func (s *Service) Delete(ctx context.Context, requester *rbac.Principal, id uuid.UUID) error {
	if err := requireAdmin(requester); err != nil {
		return err
	}
	if err := s.store.DeleteBadge(ctx, id); err != nil {
		return err
	}
	s.record(ctx, requester, "badge.delete", id, nil)
	return nil
}

// Award hands a badge to a user. The store constraint keeps the pair
// unique, so a repeated award comes back as Conflict with no second row.
func (s *Service) Award(ctx context.Context, requester *rbac.Principal, userID, badgeID uuid.UUID) (Award, error) {
	if err := requireAdmin(requester); err != nil {
		return Award{}, err
	}
	if _, err := s.store.GetBadge(ctx, badgeID); err != nil {
		return Award{}, err
	}
	a, err := s.store.CreateAward(ctx, Award{ID: uuid.New(), UserID: userID, BadgeID: badgeID})
	if err != nil {
		return Award{}, err
	}
	s.record(ctx, requester, "badge.award", badgeID, map[string]any{"user_id": userID.String()})
	return a, nil
}

// Revoke takes a badge back from a user. Revoking an award that does not
// exist is NotFound.
func (s *Service) Revoke(ctx context.Context, requester *rbac.Principal, userID, badgeID uuid.UUID) error {
	if err := requireAdmin(requester); err != nil {
		return err
	}
	removed, err := s.store.DeleteAward(ctx, userID, badgeID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("badges: award: %w", shared.ErrNotFound)
	}
	s.record(ctx, requester, "badge.revoke", badgeID, map[string]any{"user_id": userID.String()})
	return nil
}

func requireAdmin(requester *rbac.Principal) error {
	if requester == nil {
		return shared.ErrUnauthenticated
	}
	if !requester.IsAdmin() {
		return shared.ErrForbidden
	}
	return nil
}

func (s *Service) record(ctx context.Context, requester *rbac.Principal, action string, subject uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  requester.ID.String(),
		Action:   action,
		Entity:   "badge",
		EntityID: subject.String(),
		Meta:     meta,
	})
}

// badgesByName adapts a badge slice to the collator's sort interface.
type badgesByName []BadgeWithUsage

func (b badgesByName) Len() int           { return len(b) }
func (b badgesByName) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
func (b badgesByName) Bytes(i int) []byte { return []byte(b[i].Name) }
