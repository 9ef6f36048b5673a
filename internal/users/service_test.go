package users

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

type mockStore struct {
	users  map[uuid.UUID]User
	badges map[uuid.UUID][]AwardedBadge
}

func newMockStore() *mockStore {
	return &mockStore{
		users:  make(map[uuid.UUID]User),
		badges: make(map[uuid.UUID][]AwardedBadge),
	}
}

func (m *mockStore) CountUsers(ctx context.Context) (int, error) {
	return len(m.users), nil
}

func (m *mockStore) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	var all []User
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, k int) bool { return all[i].Name < all[k].Name })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("users: %w", shared.ErrNotFound)
	}
	return u, nil
}

func (m *mockStore) BadgesForUser(ctx context.Context, id uuid.UUID) ([]AwardedBadge, error) {
	return m.badges[id], nil
}

func (m *mockStore) addUser(name string) User {
	u := User{ID: uuid.New(), Email: name + "@playforge.dev", Name: name, Role: string(rbac.RoleUser)}
	m.users[u.ID] = u
	return u
}

func member() *rbac.Principal {
	return &rbac.Principal{ID: uuid.New(), Name: "member", Role: rbac.RoleUser}
}

func TestListRequiresAuthentication(t *testing.T) {
	svc := NewService(newMockStore())

	_, _, err := svc.List(context.Background(), nil, 1, 20)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestListPaginates(t *testing.T) {
	store := newMockStore()
	store.addUser("alice")
	store.addUser("bob")
	carol := store.addUser("carol")
	svc := NewService(store)

	users, meta, err := svc.List(context.Background(), member(), 2, 2)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, carol.ID, users[0].ID)
	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)
}

func TestListDefaultsPageSize(t *testing.T) {
	store := newMockStore()
	store.addUser("alice")
	svc := NewService(store)

	users, meta, err := svc.List(context.Background(), member(), 0, 0)
	require.NoError(t, err)

	assert.Len(t, users, 1)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 20, meta.PerPage)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc := NewService(newMockStore())

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetProfileIncludesBadges(t *testing.T) {
	store := newMockStore()
	u := store.addUser("dana")
	store.badges[u.ID] = []AwardedBadge{
		{ID: uuid.New(), Name: "Pioneer", AwardedAt: time.Now()},
	}
	svc := NewService(store)

	profile, err := svc.GetProfile(context.Background(), u.ID)
	require.NoError(t, err)

	assert.Equal(t, "dana", profile.User.Name)
	require.Len(t, profile.Badges, 1)
	assert.Equal(t, "Pioneer", profile.Badges[0].Name)
}
