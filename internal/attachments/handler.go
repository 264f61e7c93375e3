package attachments

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// Handler wires the attachment endpoints. Routes are mounted behind the auth
// guard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers attachment routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleUpload)
	r.Get("/{id}/download", h.handleDownload)
	r.Delete("/{id}", h.handleDelete)
}

type attachmentView struct {
	ID           int64  `json:"id"`
	TaskID       int64  `json:"task_id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
	UploadedBy   int64  `json:"uploaded_by,omitempty"`
	UploadedAt   string `json:"uploaded_at"`
}

func viewOf(a Attachment) attachmentView {
	return attachmentView{
		ID:           a.ID,
		TaskID:       a.TaskID,
		Filename:     a.Filename,
		OriginalName: a.OriginalName,
		FileSize:     a.FileSize,
		MimeType:     a.MimeType,
		UploadedBy:   a.UploadedBy,
		UploadedAt:   a.UploadedAt.Format(time.RFC3339),
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	taskID, err := strconv.ParseInt(r.URL.Query().Get("task_id"), 10, 64)
	if err != nil || taskID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: task_id is required", httpx.ErrInvalidInput))
		return
	}

	list, err := h.service.List(r.Context(), *principal, taskID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]attachmentView, 0, len(list))
	for _, a := range list {
		views = append(views, viewOf(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"attachments": views})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthenticated)
		return
	}
	if err := r.ParseMultipartForm(h.service.maxBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed multipart form", httpx.ErrInvalidInput))
		return
	}
	taskID, err := strconv.ParseInt(r.FormValue("task_id"), 10, 64)
	if err != nil || taskID <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: task_id is required", httpx.ErrInvalidInput))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: file is required", httpx.ErrInvalidInput))
		return
	}
	defer file.Close()

	attachment, err := h.service.Upload(r.Context(), *principal, taskID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":       "file uploaded",
		"attachment_id": attachment.ID,
		"filename":      attachment.Filename,
		"original_name": attachment.OriginalName,
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
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
	attachment, file, err := h.service.Open(r.Context(), *principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", attachment.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.OriginalName))
	http.ServeContent(w, r, attachment.OriginalName, attachment.UploadedAt, file)
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
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "attachment deleted"})
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: valid id is required", httpx.ErrInvalidInput)
	}
	return id, nil
}
