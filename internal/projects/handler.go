package projects

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// Handler wires the project endpoints. Routes are mounted behind the auth
// guard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers project routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

type projectView struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	CreatedBy      int64  `json:"created_by,omitempty"`
	CreatedAt      string `json:"created_at"`
	TaskCount      int64  `json:"task_count"`
	CompletedTasks int64  `json:"completed_tasks"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]projectView, 0, len(list))
	for _, p := range list {
		views = append(views, projectView{
			ID:             p.ID,
			Name:           p.Name,
			Color:          p.Color,
			CreatedBy:      p.CreatedBy,
			CreatedAt:      p.CreatedAt.Format(time.RFC3339),
			TaskCount:      p.TaskCount,
			CompletedTasks: p.CompletedTasks,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"projects": views})
}

type projectRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrInvalidInput, err))
		return
	}

	id, err := h.service.Create(r.Context(), *principal, req.Name, req.Color)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "project created", "project_id": id})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrInvalidInput, err))
		return
	}

	if err := h.service.Update(r.Context(), *principal, id, req.Name, req.Color); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "project updated"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	detached, err := h.service.Delete(r.Context(), *principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	message := "project deleted"
	if detached > 0 {
		message = fmt.Sprintf("project deleted, %d tasks moved to no project", detached)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": message})
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: valid id is required", httpx.ErrInvalidInput)
	}
	return id, nil
}
