package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/playforge/playforge/internal/auth"
	"github.com/playforge/playforge/internal/badges"
	"github.com/playforge/playforge/internal/jams"
	"github.com/playforge/playforge/internal/observability"
	"github.com/playforge/playforge/internal/platform/httpx"
	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
	"github.com/playforge/playforge/internal/tutorials"
	"github.com/playforge/playforge/internal/users"
	"github.com/playforge/playforge/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	PrincipalLoader *auth.PrincipalLoader

	AuthHandler        *auth.Handler
	TutorialsHandler   *tutorials.Handler
	BadgesHandler      *badges.Handler
	JamsHandler        *jams.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.Handler
	JobsHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Playforge defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	var principalMW func(http.Handler) http.Handler
	if params.PrincipalLoader != nil {
		principalMW = params.PrincipalLoader.Middleware
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:          params.Logger,
		Config:          params.Config,
		SessionManager:  params.SessionManager,
		CSRFManager:     params.CSRFManager,
		PrincipalLoader: principalMW,
		Metrics:         params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(ar chi.Router) {
		// Clients fetch the token here and echo it back in X-CSRF-Token
		// on mutating requests.
		ar.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
			if err != nil {
				httpx.RespondError(w, shared.ErrUnavailable)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
		})
		params.AuthHandler.MountRoutes(ar)
	})
	r.Route("/tutorials", params.TutorialsHandler.MountRoutes)
	r.Route("/badges", params.BadgesHandler.MountRoutes)
	r.Route("/jams", params.JamsHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
