package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAdminHasEveryPermission(t *testing.T) {
	p := &Principal{ID: uuid.New(), Role: RoleAdmin}
	rights := p.Rights()

	assert.True(t, rights.Has("ADMIN"))
	assert.True(t, rights.Has("VALIDATE_TUTORIAL"))
	assert.True(t, rights.Has("NEVER_GRANTED_ANYWHERE"))
	assert.True(t, rights.HasAll("A", "B", "C"))
}

func TestGrantedSetMembership(t *testing.T) {
	p := &Principal{ID: uuid.New(), Role: RoleUser, Permissions: []string{"A", "B"}}
	rights := p.Rights()

	assert.True(t, rights.Has("A"))
	assert.False(t, rights.Has("C"))
	assert.True(t, rights.HasAny("C", "A"))
	assert.False(t, rights.HasAll("A", "C"))
	assert.True(t, rights.HasAll("A", "B"))
}

func TestAnonymousHasNothing(t *testing.T) {
	var p *Principal
	rights := p.Rights()

	assert.False(t, rights.Has("ADMIN"))
	assert.False(t, rights.HasAny("A", "B"))
	// HasAll over the empty list is vacuously true.
	assert.True(t, rights.HasAll())
}

func TestParseRoleFailsClosed(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("ADMIN"))
	assert.Equal(t, RoleTutorialModerator, ParseRole("TUTORIAL_MODERATOR"))
	assert.Equal(t, RoleUser, ParseRole("USER"))
	assert.Equal(t, RoleUser, ParseRole("SUPERUSER"))
	assert.Equal(t, RoleUser, ParseRole(""))
}

type failingGrantReader struct{}

func (failingGrantReader) PermissionNamesForUser(ctx context.Context, userID string) ([]string, error) {
	return nil, errors.New("connection refused")
}

type fixedGrantReader struct{ names []string }

func (r fixedGrantReader) PermissionNamesForUser(ctx context.Context, userID string) ([]string, error) {
	return r.names, nil
}

func TestResolverFailsClosedOnStoreError(t *testing.T) {
	resolver := NewResolver(failingGrantReader{}, nil)
	rights := resolver.Resolve(context.Background(), uuid.NewString(), RoleUser)

	assert.False(t, rights.Has("VALIDATE_TUTORIAL"))
	assert.False(t, rights.HasAny("A", "B"))
}

func TestResolverAdminRoleSurvivesStoreError(t *testing.T) {
	resolver := NewResolver(failingGrantReader{}, nil)
	rights := resolver.Resolve(context.Background(), uuid.NewString(), RoleAdmin)

	// The role is part of the principal, not the grant store.
	assert.True(t, rights.Has("ANYTHING"))
}

func TestResolverLoadsGrantedNames(t *testing.T) {
	resolver := NewResolver(fixedGrantReader{names: []string{"VALIDATE_TUTORIAL"}}, nil)
	rights := resolver.Resolve(context.Background(), uuid.NewString(), RoleUser)

	assert.True(t, rights.Has("VALIDATE_TUTORIAL"))
	assert.False(t, rights.Has("ADMIN"))
}
