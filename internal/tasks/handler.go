package tasks

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

// Handler wires the task endpoints. Routes are mounted behind the auth guard.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers task routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Patch("/{id}/status", h.handleUpdateStatus)
	r.Delete("/{id}", h.handleDelete)
}

type taskView struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	DueDate        string `json:"due_date,omitempty"`
	DueTime        string `json:"due_time,omitempty"`
	ProjectID      int64  `json:"project_id,omitempty"`
	Tags           string `json:"tags,omitempty"`
	AssignedTo     int64  `json:"assigned_to,omitempty"`
	CreatedBy      int64  `json:"created_by,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	ProjectName    string `json:"project_name,omitempty"`
	ProjectColor   string `json:"project_color,omitempty"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
	CreatedByName  string `json:"created_by_name,omitempty"`
}

func viewOf(t Task) taskView {
	view := taskView{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		DueTime:        t.DueTime,
		ProjectID:      t.ProjectID,
		Tags:           t.Tags,
		AssignedTo:     t.AssignedTo,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
		ProjectName:    t.ProjectName,
		ProjectColor:   t.ProjectColor,
		AssignedToName: t.AssignedToName,
		CreatedByName:  t.CreatedByName,
	}
	if t.DueDate != nil {
		view.DueDate = t.DueDate.Format("2006-01-02")
	}
	return view
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	list, err := h.service.List(r.Context(), *principal)
	if err != nil {
		h.logger.Error("list tasks", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]taskView, 0, len(list))
	for _, t := range list {
		views = append(views, viewOf(t))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tasks": views})
}

type taskRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	DueTime     string `json:"due_time"`
	ProjectID   int64  `json:"project_id"`
	Tags        string `json:"tags"`
	AssignedTo  int64  `json:"assigned_to"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	var req taskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrInvalidInput, err))
		return
	}

	id, err := h.service.Create(r.Context(), *principal, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		DueDate:     parseDueDate(req.DueDate),
		DueTime:     req.DueTime,
		ProjectID:   req.ProjectID,
		Tags:        req.Tags,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "task created", "task_id": id})
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
	var req taskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrInvalidInput, err))
		return
	}

	err = h.service.Update(r.Context(), *principal, id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		DueDate:     parseDueDate(req.DueDate),
		DueTime:     req.DueTime,
		ProjectID:   req.ProjectID,
		Tags:        req.Tags,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "task updated"})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid status", httpx.ErrInvalidInput))
		return
	}

	if err := h.service.UpdateStatus(r.Context(), *principal, id, Status(req.Status)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "task status updated"})
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
	if err := h.service.Delete(r.Context(), *principal, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: valid id is required", httpx.ErrInvalidInput)
	}
	return id, nil
}

func parseDueDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
