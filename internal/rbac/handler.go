package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/platform/httpx"
	"github.com/playforge/playforge/internal/shared"
)

// Handler exposes permission management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers permission routes. Authorization is enforced by
// the service guards; routes still require an authenticated principal.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(Middleware{}.RequireAuthenticated)
		r.Get("/", h.listPermissions)
		r.Post("/grants", h.grant)
		r.Delete("/grants/{userID}/{name}", h.revoke)
	})
}

type permissionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID.String(), Name: p.Name, Description: p.Description})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type grantRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
	Name   string `json:"name" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.service.Grant(r.Context(), PrincipalFromContext(r.Context()), userID, req.Name); err != nil {
		h.fail(w, "grant permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID, "permission": req.Name})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	name := chi.URLParam(r, "name")
	if err := h.service.Revoke(r.Context(), PrincipalFromContext(r.Context()), userID, name); err != nil {
		h.fail(w, "revoke permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
