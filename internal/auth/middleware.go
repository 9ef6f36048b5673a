package auth

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// PrincipalLoader turns the request session into an rbac.Principal. The
// principal carries the grants resolved once here; everything downstream
// reads them without touching the store again.
type PrincipalLoader struct {
	repo     Repository
	resolver *rbac.Resolver
	logger   *slog.Logger
}

// NewPrincipalLoader constructs a PrincipalLoader.
func NewPrincipalLoader(repo Repository, resolver *rbac.Resolver, logger *slog.Logger) *PrincipalLoader {
	return &PrincipalLoader{repo: repo, resolver: resolver, logger: logger}
}

// Middleware attaches the principal for authenticated sessions. A session
// that does not map to an active account stays anonymous; the request
// itself proceeds either way.
func (l *PrincipalLoader) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := uuid.Parse(sess.User())
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		account, err := l.repo.FindByID(r.Context(), userID)
		if err != nil || !account.IsActive {
			if err != nil && l.logger != nil {
				l.logger.Warn("load session account", slog.String("user_id", userID.String()), slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		p := &rbac.Principal{
			ID:          account.ID,
			Name:        account.Name,
			Role:        rbac.ParseRole(account.Role),
			Permissions: l.resolver.ResolveNames(r.Context(), account.ID.String()),
		}
		next.ServeHTTP(w, r.WithContext(rbac.ContextWithPrincipal(r.Context(), p)))
	})
}
