package jams

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/platform/httpx"
	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Handler manages jam endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes attaches the jam routes. The calendar is public; mutations
// sit behind the admin guard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Group(func(r chi.Router) {
		r.Use(rbac.Middleware{}.RequireAdmin)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type jamRequest struct {
	Title     string    `json:"title" validate:"required,max=200"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	ItchIoURL string    `json:"itch_io_url" validate:"omitempty,url"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	upcoming := r.URL.Query().Get("upcoming") == "true"
	out, err := h.service.List(r.Context(), upcoming)
	if err != nil {
		h.fail(w, "list jams", err)
		return
	}
	if out == nil {
		out = []Jam{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	j, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get jam", err)
		return
	}
	httpx.JSON(w, http.StatusOK, j)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req jamRequest
	if !h.decode(w, r, &req) {
		return
	}
	j, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), JamInput{
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		ItchIoURL: req.ItchIoURL,
	})
	if err != nil {
		h.fail(w, "create jam", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, j)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req jamRequest
	if !h.decode(w, r, &req) {
		return
	}
	j, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, JamInput{
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		ItchIoURL: req.ItchIoURL,
	})
	if err != nil {
		h.fail(w, "update jam", err)
		return
	}
	httpx.JSON(w, http.StatusOK, j)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete jam", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
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
