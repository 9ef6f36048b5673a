package badges

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/platform/httpx"
	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Handler manages badge endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches the badge routes. The catalog is public; every
// mutation sits behind the admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(rbac.Middleware{}.RequireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/awards", h.award)
		r.Delete("/{id}/awards/{userID}", h.revoke)
	})
}

type badgeRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

type awardRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list badges", err)
		return
	}
	if out == nil {
		out = []BadgeWithUsage{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req badgeRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), BadgeInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(w, "create badge", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req badgeRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, BadgeInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.fail(w, "update badge", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete badge", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) award(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req awardRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	a, err := h.service.Award(r.Context(), rbac.PrincipalFromContext(r.Context()), userID, id)
	if err != nil {
		h.fail(w, "award badge", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := h.pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.service.Revoke(r.Context(), rbac.PrincipalFromContext(r.Context()), userID, id); err != nil {
		h.fail(w, "revoke badge", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
