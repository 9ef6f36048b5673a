package tutorials

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

// Handler manages tutorial endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers tutorial routes. Reads are open to anonymous
// viewers; the service applies the visibility gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Get("/{id}/comments", h.listComments)

	r.Group(func(r chi.Router) {
		r.Use(rbac.Middleware{}.RequireAuthenticated)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/validate", h.validate)
		r.Post("/{id}/rate", h.rate)
		r.Post("/{id}/comments", h.addComment)
		r.Delete("/comments/{commentID}", h.removeComment)
	})
}

type tutorialResponse struct {
	ID            string     `json:"id"`
	AuthorID      string     `json:"author_id"`
	AuthorName    string     `json:"author_name,omitempty"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	IsPublished   bool       `json:"is_published"`
	IsValidated   bool       `json:"is_validated"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AverageRating *float64   `json:"avg_rating,omitempty"`
	RatingCount   int        `json:"rating_count"`
	CommentCount  int        `json:"comment_count"`
}

func toResponse(t WithStats) tutorialResponse {
	return tutorialResponse{
		ID:            t.ID.String(),
		AuthorID:      t.AuthorID.String(),
		AuthorName:    t.AuthorName,
		Title:         t.Title,
		Content:       t.Content,
		IsPublished:   t.IsPublished,
		IsValidated:   t.IsValidated,
		PublishedAt:   t.PublishedAt,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		AverageRating: t.AverageRating,
		RatingCount:   t.RatingCount,
		CommentCount:  t.CommentCount,
	}
}

func bareResponse(t Tutorial) tutorialResponse {
	return toResponse(WithStats{Tutorial: t})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	if raw := r.URL.Query().Get("authorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, shared.ErrInvalidInput)
			return
		}
		filter.AuthorID = &id
	}
	items, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		h.fail(w, "list tutorials", err)
		return
	}
	out := make([]tutorialResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "get tutorial", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

type createRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), CreateInput{Title: req.Title, Content: req.Content})
	if err != nil {
		h.fail(w, "create tutorial", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bareResponse(t))
}

type updateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Content     string `json:"content" validate:"required"`
	IsPublished bool   `json:"is_published"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, UpdateInput{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		h.fail(w, "update tutorial", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bareResponse(t))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete tutorial", err)
		return
	}
	httpx.NoContent(w)
}

type validateRequest struct {
	IsValidated bool `json:"is_validated"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	t, err := h.service.SetValidated(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.IsValidated)
	if err != nil {
		h.fail(w, "validate tutorial", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bareResponse(t))
}

type rateRequest struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}

type ratingResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	TutorialID string `json:"tutorial_id"`
	Score      int    `json:"score"`
}

func (h *Handler) rate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req rateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rating, err := h.service.Rate(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Score)
	if err != nil {
		h.fail(w, "rate tutorial", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ratingResponse{
		ID:         rating.ID.String(),
		UserID:     rating.UserID.String(),
		TutorialID: rating.TutorialID.String(),
		Score:      rating.Score,
	})
}

type commentResponse struct {
	ID         string    `json:"id"`
	TutorialID string    `json:"tutorial_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCommentResponse(c Comment) commentResponse {
	return commentResponse{
		ID:         c.ID.String(),
		TutorialID: c.TutorialID.String(),
		AuthorID:   c.AuthorID.String(),
		AuthorName: c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
	}
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.service.ListComments(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "list comments", err)
		return
	}
	out := make([]commentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.AddComment(r.Context(), rbac.PrincipalFromContext(r.Context()), id, req.Content)
	if err != nil {
		h.fail(w, "add comment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCommentResponse(c))
}

func (h *Handler) removeComment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "commentID"))
	if err != nil {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	if err := h.service.DeleteComment(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete comment", err)
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
