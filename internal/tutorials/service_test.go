package tutorials

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// mockStore keeps everything in memory and mimics the SQL constraints the
// real repository relies on.
type mockStore struct {
	tutorials map[uuid.UUID]Tutorial
	ratings   map[uuid.UUID]map[uuid.UUID]Rating // tutorialID -> userID -> rating
	comments  map[uuid.UUID]Comment
}

func newMockStore() *mockStore {
	return &mockStore{
		tutorials: make(map[uuid.UUID]Tutorial),
		ratings:   make(map[uuid.UUID]map[uuid.UUID]Rating),
		comments:  make(map[uuid.UUID]Comment),
	}
}

func (m *mockStore) CreateTutorial(ctx context.Context, t Tutorial) (Tutorial, error) {
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.tutorials[t.ID] = t
	return t, nil
}

func (m *mockStore) GetTutorial(ctx context.Context, id uuid.UUID) (Tutorial, error) {
	t, ok := m.tutorials[id]
	if !ok {
		return Tutorial{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *mockStore) UpdateTutorial(ctx context.Context, t Tutorial) (Tutorial, error) {
	if _, ok := m.tutorials[t.ID]; !ok {
		return Tutorial{}, shared.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	m.tutorials[t.ID] = t
	return t, nil
}

func (m *mockStore) DeleteTutorial(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.tutorials[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.tutorials, id)
	return nil
}

func (m *mockStore) ListTutorials(ctx context.Context, filter ListFilter) ([]Tutorial, error) {
	var out []Tutorial
	for _, t := range m.tutorials {
		if filter.AuthorID != nil && t.AuthorID != *filter.AuthorID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockStore) UpsertRating(ctx context.Context, userID, tutorialID uuid.UUID, score int) (Rating, error) {
	if m.ratings[tutorialID] == nil {
		m.ratings[tutorialID] = make(map[uuid.UUID]Rating)
	}
	existing, ok := m.ratings[tutorialID][userID]
	if ok {
		existing.Score = score
		existing.UpdatedAt = time.Now()
		m.ratings[tutorialID][userID] = existing
		return existing, nil
	}
	rating := Rating{ID: uuid.New(), UserID: userID, TutorialID: tutorialID, Score: score, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.ratings[tutorialID][userID] = rating
	return rating, nil
}

func (m *mockStore) RatingsForTutorial(ctx context.Context, tutorialID uuid.UUID) ([]Rating, error) {
	var out []Rating
	for _, r := range m.ratings[tutorialID] {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) RatingsByTutorial(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Rating, error) {
	grouped := make(map[uuid.UUID][]Rating)
	for _, id := range ids {
		rs, _ := m.RatingsForTutorial(ctx, id)
		if len(rs) > 0 {
			grouped[id] = rs
		}
	}
	return grouped, nil
}

func (m *mockStore) CommentCounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	for _, c := range m.comments {
		counts[c.TutorialID]++
	}
	return counts, nil
}

func (m *mockStore) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	c.CreatedAt = time.Now()
	m.comments[c.ID] = c
	return c, nil
}

func (m *mockStore) GetComment(ctx context.Context, id uuid.UUID) (Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return Comment{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockStore) CommentsForTutorial(ctx context.Context, tutorialID uuid.UUID) ([]Comment, error) {
	var out []Comment
	for _, c := range m.comments {
		if c.TutorialID == tutorialID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteComment(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.comments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func plainUser() *rbac.Principal {
	return &rbac.Principal{ID: uuid.New(), Role: rbac.RoleUser}
}

func adminUser() *rbac.Principal {
	return &rbac.Principal{ID: uuid.New(), Role: rbac.RoleAdmin}
}

func moderator() *rbac.Principal {
	return &rbac.Principal{ID: uuid.New(), Role: rbac.RoleTutorialModerator, Permissions: []string{shared.PermValidateTutorial}}
}

func newService() (*Service, *mockStore) {
	store := newMockStore()
	return NewService(store, nil), store
}

func TestCreateAsPlainUserIsUnvalidated(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), plainUser(), CreateInput{Title: "Shaders 101", Content: "..."})
	require.NoError(t, err)

	assert.True(t, created.IsPublished)
	assert.False(t, created.IsValidated)
	require.NotNil(t, created.PublishedAt)
}

func TestCreateWithBypassIsValidated(t *testing.T) {
	svc, _ := newService()

	byAdmin, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)
	assert.True(t, byAdmin.IsValidated)

	creator := &rbac.Principal{ID: uuid.New(), Role: rbac.RoleUser, Permissions: []string{shared.PermBypassTutorialValidation}}
	byCreator, err := svc.Create(context.Background(), creator, CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)
	assert.True(t, byCreator.IsValidated)
}

func TestCreateRequiresPrincipal(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Create(context.Background(), nil, CreateInput{Title: "T", Content: "c"})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestPublishedAtSetExactlyOnce(t *testing.T) {
	svc, store := newService()
	author := plainUser()

	created, err := svc.Create(context.Background(), author, CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)
	first := *created.PublishedAt

	// Unpublish, then republish: publishedAt must keep its first value.
	_, err = svc.Update(context.Background(), author, created.ID, UpdateInput{Title: "T", Content: "c", IsPublished: false})
	require.NoError(t, err)
	republished, err := svc.Update(context.Background(), author, created.ID, UpdateInput{Title: "T", Content: "c", IsPublished: true})
	require.NoError(t, err)

	require.NotNil(t, republished.PublishedAt)
	assert.Equal(t, first, *republished.PublishedAt)

	stored := store.tutorials[created.ID]
	assert.Equal(t, first, *stored.PublishedAt)
}

func TestPublishedAtSetOnFirstPublish(t *testing.T) {
	svc, store := newService()
	author := plainUser()

	// Seed an unpublished draft directly; create always starts published.
	draft := Tutorial{ID: uuid.New(), AuthorID: author.ID, Title: "T", Content: "c"}
	store.tutorials[draft.ID] = draft

	published, err := svc.Update(context.Background(), author, draft.ID, UpdateInput{Title: "T", Content: "c", IsPublished: true})
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
}

func TestUpdateForbiddenForStranger(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), plainUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), plainUser(), created.ID, UpdateInput{Title: "X", Content: "y", IsPublished: true})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// Admin may edit anyone's tutorial.
	_, err = svc.Update(context.Background(), adminUser(), created.ID, UpdateInput{Title: "X", Content: "y", IsPublished: true})
	assert.NoError(t, err)
}

func TestValidatePermissions(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), plainUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	_, err = svc.SetValidated(context.Background(), plainUser(), created.ID, true)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	validated, err := svc.SetValidated(context.Background(), moderator(), created.ID, true)
	require.NoError(t, err)
	assert.True(t, validated.IsValidated)

	unvalidated, err := svc.SetValidated(context.Background(), adminUser(), created.ID, false)
	require.NoError(t, err)
	assert.False(t, unvalidated.IsValidated)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	svc, _ := newService()
	author := plainUser()
	created, err := svc.Create(context.Background(), author, CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), author, created.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.Delete(context.Background(), adminUser(), created.ID)
	assert.NoError(t, err)
}

func TestVisibilityHidesUnvalidatedFromAnonymous(t *testing.T) {
	svc, _ := newService()
	author := plainUser()
	created, err := svc.Create(context.Background(), author, CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	// Published but not yet validated: hidden from anonymous and other users.
	_, err = svc.Get(context.Background(), nil, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "hidden tutorial must read as not found, not forbidden")

	_, err = svc.Get(context.Background(), plainUser(), created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Author, admin and moderator all see it.
	for _, p := range []*rbac.Principal{author, adminUser(), moderator()} {
		_, err = svc.Get(context.Background(), p, created.ID)
		assert.NoError(t, err)
	}
}

func TestVisibilityHidesUnpublished(t *testing.T) {
	svc, store := newService()
	author := plainUser()
	draft := Tutorial{ID: uuid.New(), AuthorID: author.ID, Title: "T", Content: "c", IsValidated: true}
	store.tutorials[draft.ID] = draft

	_, err := svc.Get(context.Background(), nil, draft.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Get(context.Background(), author, draft.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), adminUser(), draft.ID)
	assert.NoError(t, err)
}

func TestListFiltersInvisible(t *testing.T) {
	svc, _ := newService()
	author := plainUser()

	_, err := svc.Create(context.Background(), author, CreateInput{Title: "pending", Content: "c"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), adminUser(), CreateInput{Title: "live", Content: "c"})
	require.NoError(t, err)

	visible, err := svc.List(context.Background(), nil, ListFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "live", visible[0].Title)

	all, err := svc.List(context.Background(), adminUser(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRateUpsertsSingleRow(t *testing.T) {
	svc, store := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	rater := plainUser()
	_, err = svc.Rate(context.Background(), rater, created.ID, 3)
	require.NoError(t, err)
	second, err := svc.Rate(context.Background(), rater, created.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Score)

	ratings, err := store.RatingsForTutorial(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, ratings, 1, "re-rating must replace, not duplicate")

	avg := AverageRating(ratings)
	require.NotNil(t, avg)
	assert.Equal(t, 5.0, *avg)
}

func TestRateRejectsOutOfRange(t *testing.T) {
	svc, store := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	for _, score := range []int{0, 6, -1} {
		_, err = svc.Rate(context.Background(), plainUser(), created.ID, score)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	}
	ratings, err := store.RatingsForTutorial(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, ratings, "rejected rating must leave the store unchanged")
}

func TestRateHiddenTutorialIsNotFound(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), plainUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	_, err = svc.Rate(context.Background(), plainUser(), created.ID, 4)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteCommentAuthorization(t *testing.T) {
	svc, _ := newService()
	author := plainUser()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), author, created.ID, "nice one")
	require.NoError(t, err)

	err = svc.DeleteComment(context.Background(), plainUser(), comment.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.DeleteComment(context.Background(), author, comment.ID)
	assert.NoError(t, err)

	// Missing comment is NotFound regardless of the requester.
	err = svc.DeleteComment(context.Background(), adminUser(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	err = svc.DeleteComment(context.Background(), nil, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAdminCanDeleteAnyComment(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	comment, err := svc.AddComment(context.Background(), plainUser(), created.ID, "hello")
	require.NoError(t, err)

	err = svc.DeleteComment(context.Background(), adminUser(), comment.ID)
	assert.NoError(t, err)
}

func TestAddCommentRequiresContent(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), plainUser(), created.ID, "   ")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.AddComment(context.Background(), nil, created.ID, "hi")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
