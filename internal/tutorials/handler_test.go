package tutorials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/playforge/internal/rbac"
)

func newTestRouter(svc *Service, p *rbac.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := rbac.ContextWithPrincipal(req.Context(), p)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/tutorials", NewHandler(nil, svc).MountRoutes)
	return r
}

func TestShowHiddenTutorialReturns404(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), plainUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	router := newTestRouter(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/tutorials/"+created.ID.String(), nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code, "hidden tutorial must 404, never 403")
}

func TestShowVisibleTutorial(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "Live", Content: "c"})
	require.NoError(t, err)

	router := newTestRouter(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/tutorials/"+created.ID.String(), nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body tutorialResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "Live", body.Title)
	assert.Nil(t, body.AverageRating)
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc, _ := newService()
	router := newTestRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/tutorials/", strings.NewReader(`{"title":"T","content":"c"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRateRejectsOutOfRangeScore(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	router := newTestRouter(svc, plainUser())
	req := httptest.NewRequest(http.MethodPost, "/tutorials/"+created.ID.String()+"/rate", strings.NewReader(`{"score":6}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRateStoresScore(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	router := newTestRouter(svc, plainUser())
	req := httptest.NewRequest(http.MethodPost, "/tutorials/"+created.ID.String()+"/rate", strings.NewReader(`{"score":4}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body ratingResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Score)
}

func TestDeleteTutorialForbiddenForNonAdmin(t *testing.T) {
	svc, _ := newService()
	created, err := svc.Create(context.Background(), adminUser(), CreateInput{Title: "T", Content: "c"})
	require.NoError(t, err)

	router := newTestRouter(svc, plainUser())
	req := httptest.NewRequest(http.MethodDelete, "/tutorials/"+created.ID.String(), nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusForbidden, res.Code)
}
