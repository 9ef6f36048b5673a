package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/playforge/playforge/internal/auth"
	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

type stubRepo struct {
	account  *auth.Account
	sessions map[string]uuid.UUID
	roleSets int
}

func newStubRepo(account *auth.Account) *stubRepo {
	return &stubRepo{account: account, sessions: make(map[string]uuid.UUID)}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if s.account == nil || s.account.Email != email {
		return nil, shared.ErrNotFound
	}
	copy := *s.account
	return &copy, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	if s.account == nil || s.account.ID != id {
		return nil, shared.ErrNotFound
	}
	copy := *s.account
	return &copy, nil
}

func (s *stubRepo) CreateAccount(ctx context.Context, a auth.Account) (*auth.Account, error) {
	if s.account != nil && s.account.Email == a.Email {
		return nil, shared.ErrConflict
	}
	a.IsActive = true
	s.account = &a
	return &a, nil
}

func (s *stubRepo) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	if s.account == nil || s.account.ID != id {
		return shared.ErrNotFound
	}
	s.account.Role = role
	s.roleSets++
	return nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubSyncer struct {
	err   error
	calls int
}

func (s *stubSyncer) SyncGrant(ctx context.Context, userID uuid.UUID, name string) error {
	s.calls++
	return s.err
}

type commitWriter struct {
	http.ResponseWriter
	t         *testing.T
	sessions  *shared.SessionManager
	sess      *shared.Session
	ctx       context.Context
	req       *http.Request
	committed bool
}

func (w *commitWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true
	require.NoError(w.t, w.sessions.Commit(w.ctx, w.ResponseWriter, w.req, w.sess))
}

func (w *commitWriter) WriteHeader(statusCode int) {
	w.commit()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(data)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return string(hashed)
}

func activeAccount(t *testing.T, email, password string) *auth.Account {
	t.Helper()
	return &auth.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Tester",
		PasswordHash: hashOf(t, password),
		Role:         string(rbac.RoleUser),
		IsActive:     true,
	}
}

func newAuthRouter(t *testing.T, repo auth.Repository, syncer auth.PermissionSyncer, adminEmail string) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	service := auth.NewService(repo, syncer, discardLogger(), adminEmail)
	handler := auth.NewHandler(discardLogger(), service, sessions)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			req = req.WithContext(ctx)
			// Commit before the first write, mirroring the production
			// middleware: headers set after WriteHeader are dropped.
			cw := &commitWriter{ResponseWriter: w, t: t, sessions: sessions, sess: sess, ctx: ctx, req: req}
			next.ServeHTTP(cw, req)
			cw.commit()
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r, sessions
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	repo := newStubRepo(activeAccount(t, "dev@playforge.dev", "correctpass"))
	router, sessions := newAuthRouter(t, repo, nil, "")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"dev@playforge.dev","password":"correctpass"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	cookie := findCookie(res.Result().Cookies(), sessions.CookieName())
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.Contains(t, repo.sessions, cookie.Value)

	var body struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		AdminSynced *bool `json:"admin_synced"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "dev@playforge.dev", body.User.Email)
	assert.Nil(t, body.AdminSynced)
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	repo := newStubRepo(activeAccount(t, "dev@playforge.dev", "correctpass"))
	router, _ := newAuthRouter(t, repo, nil, "")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"dev@playforge.dev","password":"wrongpass"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, repo.sessions)
}

func TestLoginInactiveAccountIsUnauthorized(t *testing.T) {
	account := activeAccount(t, "dev@playforge.dev", "correctpass")
	account.IsActive = false
	router, _ := newAuthRouter(t, newStubRepo(account), nil, "")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"dev@playforge.dev","password":"correctpass"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAdminBootstrapPromotesConfiguredAccount(t *testing.T) {
	repo := newStubRepo(activeAccount(t, "root@playforge.dev", "correctpass"))
	syncer := &stubSyncer{}
	router, _ := newAuthRouter(t, repo, syncer, "root@playforge.dev")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"root@playforge.dev","password":"correctpass"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, string(rbac.RoleAdmin), repo.account.Role)
	assert.Equal(t, 1, syncer.calls)

	var body struct {
		AdminSynced *bool `json:"admin_synced"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotNil(t, body.AdminSynced)
	assert.True(t, *body.AdminSynced)
}

func TestAdminBootstrapFailureDoesNotBlockLogin(t *testing.T) {
	repo := newStubRepo(activeAccount(t, "root@playforge.dev", "correctpass"))
	syncer := &stubSyncer{err: errors.New("grant store down")}
	router, sessions := newAuthRouter(t, repo, syncer, "root@playforge.dev")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"root@playforge.dev","password":"correctpass"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, "login succeeds even when the grant sync fails")
	require.NotNil(t, findCookie(res.Result().Cookies(), sessions.CookieName()))

	var body struct {
		AdminSynced *bool `json:"admin_synced"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotNil(t, body.AdminSynced)
	assert.False(t, *body.AdminSynced)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := newStubRepo(activeAccount(t, "dev@playforge.dev", "correctpass"))
	router, sessions := newAuthRouter(t, repo, nil, "")

	login := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"dev@playforge.dev","password":"correctpass"}`))
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, login)
	require.Equal(t, http.StatusOK, loginRes.Code)
	cookie := findCookie(loginRes.Result().Cookies(), sessions.CookieName())
	require.NotNil(t, cookie)

	logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logout.AddCookie(cookie)
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logout)

	assert.Equal(t, http.StatusNoContent, logoutRes.Code)
	assert.Empty(t, repo.sessions)
}

func TestRegisterCreatesUserRoleAccount(t *testing.T) {
	repo := newStubRepo(nil)
	router, _ := newAuthRouter(t, repo, nil, "")

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"new@playforge.dev","name":"New Dev","password":"longenough"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusCreated, res.Code)
	require.NotNil(t, repo.account)
	assert.Equal(t, string(rbac.RoleUser), repo.account.Role)
	assert.NotEqual(t, "longenough", repo.account.PasswordHash)
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	return nil
}
