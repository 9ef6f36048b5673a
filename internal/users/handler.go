package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/playforge/playforge/internal/platform/httpx"
	"github.com/playforge/playforge/internal/rbac"
	"github.com/playforge/playforge/internal/shared"
)

// Handler manages member directory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(rbac.Middleware{}.RequireAuthenticated)
		r.Get("/", h.listUsers)
	})
	r.Get("/{id}", h.showProfile)
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Role  string `json:"role"`
}

type badgeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	AwardedAt   time.Time `json:"awarded_at"`
}

type profileResponse struct {
	userResponse
	Badges []badgeResponse `json:"badges"`
}

type directoryResponse struct {
	Users      []userResponse `json:"users"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	users, meta, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()), page, perPage)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID.String(), Name: u.Name, Image: u.Image, Role: u.Role})
	}
	httpx.JSON(w, http.StatusOK, directoryResponse{
		Users:      out,
		Page:       meta.Page,
		PerPage:    meta.PerPage,
		Total:      meta.Total,
		TotalPages: meta.TotalPages,
	})
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		h.logger.Error("load profile failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := profileResponse{
		userResponse: userResponse{
			ID:    profile.User.ID.String(),
			Name:  profile.User.Name,
			Image: profile.User.Image,
			Role:  profile.User.Role,
		},
		Badges: make([]badgeResponse, 0, len(profile.Badges)),
	}
	for _, b := range profile.Badges {
		resp.Badges = append(resp.Badges, badgeResponse{
			ID:          b.ID.String(),
			Name:        b.Name,
			Description: b.Description,
			ImageURL:    b.ImageURL,
			AwardedAt:   b.AwardedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}
