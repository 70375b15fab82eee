package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSCAN/hobbyist-haven-api/internal/project/domain"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/middleware"
)

// Store is the slice of the project repository the handler uses.
type Store interface {
	List(ctx context.Context) ([]*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	Create(ctx context.Context, authorID string, fields *domain.Fields, stages []domain.StageSpec) (*domain.Project, error)
	UpdateWithStages(ctx context.Context, id string, fields *domain.Fields, stages []domain.StageSpec) (*domain.Project, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the project endpoints. Reads are public; writes require auth.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	return r
}

type stageRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type projectRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	TechStack     []string       `json:"techStack"`
	RepoURLs      []string       `json:"repoUrls"`
	ImageURL      string         `json:"imageUrl"`
	Documentation string         `json:"documentation"`
	YoutubeURL    *string        `json:"youtubeUrl"`
	Stages        []stageRequest `json:"stages"`
}

func (req *projectRequest) fields() *domain.Fields {
	return &domain.Fields{
		Title:         req.Title,
		Description:   req.Description,
		TechStack:     req.TechStack,
		RepoURLs:      req.RepoURLs,
		ImageURL:      req.ImageURL,
		Documentation: req.Documentation,
		YoutubeURL:    req.YoutubeURL,
	}
}

func (req *projectRequest) stageSpecs() []domain.StageSpec {
	specs := make([]domain.StageSpec, 0, len(req.Stages))
	for _, s := range req.Stages {
		specs = append(specs, domain.StageSpec{Name: s.Name, Description: s.Description, Status: s.Status})
	}
	return specs
}

type authorResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type stageResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type projectResponse struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TechStack     []string        `json:"techStack"`
	RepoURLs      []string        `json:"repoUrls"`
	ImageURL      string          `json:"imageUrl"`
	Documentation string          `json:"documentation"`
	YoutubeURL    *string         `json:"youtubeUrl"`
	AuthorID      string          `json:"authorId"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Author        *authorResponse `json:"author,omitempty"`
	Stages        []stageResponse `json:"stages"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	resp := projectResponse{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		TechStack:     p.TechStack,
		RepoURLs:      p.RepoURLs,
		ImageURL:      p.ImageURL,
		Documentation: p.Documentation,
		YoutubeURL:    p.YoutubeURL,
		AuthorID:      p.AuthorID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Stages:        make([]stageResponse, 0, len(p.Stages)),
	}
	if resp.TechStack == nil {
		resp.TechStack = []string{}
	}
	if resp.RepoURLs == nil {
		resp.RepoURLs = []string{}
	}
	if p.Author != nil {
		resp.Author = &authorResponse{
			ID:    p.Author.ID,
			Email: p.Author.Email,
			Name:  p.Author.Name,
			Role:  string(p.Author.Role),
		}
	}
	for _, s := range p.Stages {
		resp.Stages = append(resp.Stages, stageResponse{
			ID:          s.ID,
			ProjectID:   s.ProjectID,
			Name:        s.Name,
			Description: s.Description,
			Status:      s.Status,
			CreatedAt:   s.CreatedAt,
		})
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("project list failed", "error", err)
		httpx.InternalError(w)
		return
	}
	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("project lookup failed", "project_id", id, "error", err)
		httpx.InternalError(w)
		return
	}
	if p == nil {
		httpx.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "No token provided")
		return
	}
	req, ok := decodeProjectRequest(w, r)
	if !ok {
		return
	}
	p, err := h.store.Create(r.Context(), caller.ID, req.fields(), req.stageSpecs())
	if err != nil {
		slog.Error("project create failed", "author_id", caller.ID, "error", err)
		httpx.InternalError(w)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProjectResponse(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeProjectRequest(w, r)
	if !ok {
		return
	}
	p, err := h.store.UpdateWithStages(r.Context(), id, req.fields(), req.stageSpecs())
	if err != nil {
		slog.Error("project update failed", "project_id", id, "error", err)
		httpx.InternalError(w)
		return
	}
	if p == nil {
		httpx.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	httpx.JSON(w, http.StatusOK, toProjectResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		slog.Error("project delete failed", "project_id", id, "error", err)
		httpx.InternalError(w)
		return
	}
	if !deleted {
		httpx.Error(w, http.StatusNotFound, "Project not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeProjectRequest parses and validates the shared create/update body.
// On failure it writes the error response and returns false.
func decodeProjectRequest(w http.ResponseWriter, r *http.Request) (*projectRequest, bool) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if req.Title == "" || req.Description == "" {
		httpx.Error(w, http.StatusBadRequest, "Title and description are required")
		return nil, false
	}
	return &req, true
}
