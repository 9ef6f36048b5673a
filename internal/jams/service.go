package jams

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Store defines persistence operations the service depends on.
type Store interface {
	CreateJam(ctx context.Context, j Jam) (Jam, error)
	GetJam(ctx context.Context, id uuid.UUID) (Jam, error)
	ListJams(ctx context.Context) ([]Jam, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]Jam, error)
	UpdateJam(ctx context.Context, j Jam) (Jam, error)
	DeleteJam(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates the jam calendar. Listings are public; mutations
// are ADMIN-only. The clock is injected so upcoming cutoffs are testable.
type Service struct {
	store Store
	audit *shared.AuditLogger
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, audit *shared.AuditLogger) *Service {
	return &Service{store: store, audit: audit, now: time.Now}
}

// JamInput carries the editable jam fields.
type JamInput struct {
	Title     string
	StartDate time.Time
	EndDate   time.Time
	ItchIoURL string
}

func (in *JamInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: jam title required", shared.ErrInvalidInput)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("%w: jam dates required", shared.ErrInvalidInput)
	}
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("%w: jam must end on or after its start", shared.ErrInvalidInput)
	}
	return nil
}

// List returns every jam. With upcomingOnly set, only jams that have not
// started yet come back, soonest first.
func (s *Service) List(ctx context.Context, upcomingOnly bool) ([]Jam, error) {
	if upcomingOnly {
		return s.store.ListUpcoming(ctx, s.now().UTC())
	}
	return s.store.ListJams(ctx)
}

// Get fetches a single jam.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Jam, error) {
	return s.store.GetJam(ctx, id)
}

// Create schedules a jam.
func (s *Service) Create(ctx context.Context, requester *rbac.Principal, in JamInput) (Jam, error) {
	if err := requireAdmin(requester); err != nil {
		return Jam{}, err
	}
	if err := in.validate(); err != nil {
		return Jam{}, err
	}
	j, err := s.store.CreateJam(ctx, Jam{
		ID:        uuid.New(),
		Title:     in.Title,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		ItchIoURL: strings.TrimSpace(in.ItchIoURL),
	})
	if err != nil {
		return Jam{}, err
	}
	s.record(ctx, requester, "jam.create", j.ID, map[string]any{"title": j.Title})
	return j, nil
}

// Update rewrites a jam's schedule and metadata.
func (s *Service) Update(ctx context.Context, requester *rbac.Principal, id uuid.UUID, in JamInput) (Jam, error) {
	if err := requireAdmin(requester); err != nil {
		return Jam{}, err
	}
	if err := in.validate(); err != nil {
		return Jam{}, err
	}
	j, err := s.store.UpdateJam(ctx, Jam{
		ID:        id,
		Title:     in.Title,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		ItchIoURL: strings.TrimSpace(in.ItchIoURL),
	})
	if err != nil {
		return Jam{}, err
	}
	s.record(ctx, requester, "jam.update", j.ID, map[string]any{"title": j.Title})
	return j, nil
}

// Delete removes a jam from the calendar.
func (s *Service) Delete(ctx context.Context, requester *rbac.Principal, id uuid.UUID) error {
	if err := requireAdmin(requester); err != nil {
		return err
	}
	if err := s.store.DeleteJam(ctx, id); err != nil {
		return err
	}
	s.record(ctx, requester, "jam.delete", id, nil)
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
		Entity:   "jam",
		EntityID: subject.String(),
		Meta:     meta,
	})
}
