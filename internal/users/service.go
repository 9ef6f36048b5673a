package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Store defines the persistence surface the service needs.
type Store interface {
	CountUsers(ctx context.Context) (int, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	BadgesForUser(ctx context.Context, id uuid.UUID) ([]AwardedBadge, error)
}

// Service exposes the member directory.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns one page of the member directory; it requires a signed-in
// principal.
func (s *Service) List(ctx context.Context, requester *rbac.Principal, page, perPage int) ([]User, shared.Pagination, error) {
	if requester == nil {
		return nil, shared.Pagination{}, shared.ErrUnauthenticated
	}
	total, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	meta := shared.NewPagination(page, perPage, total)
	users, err := s.store.ListUsers(ctx, meta.PerPage, (meta.Page-1)*meta.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, meta, nil
}

// GetProfile returns a member together with their awarded badges.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	badges, err := s.store.BadgesForUser(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: user, Badges: badges}, nil
}
