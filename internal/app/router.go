package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskflow/taskflow/internal/attachments"
	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/notify"
	"github.com/taskflow/taskflow/internal/observability"
	"github.com/taskflow/taskflow/internal/projects"
	"github.com/taskflow/taskflow/internal/tasks"
	"github.com/taskflow/taskflow/internal/users"
	"github.com/taskflow/taskflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Guard              *auth.Guard
	AuthHandler        *auth.Handler
	TasksHandler       *tasks.Handler
	ProjectsHandler    *projects.Handler
	AttachmentsHandler *attachments.Handler
	UsersHandler       *users.Handler
	Notifier           *notify.Notifier
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with TaskFlow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// The plain REST surface gets a request deadline and compression.
		// The event stream lives outside this group: a timeout would cut
		// every connection and compression buffers the flushes away.
		api.Group(func(rest chi.Router) {
			rest.Use(chimw.Timeout(params.Config.AppRequestTimeout))
			rest.Use(chimw.Compress(5))

			rest.Route("/auth", params.AuthHandler.MountRoutes)

			rest.Group(func(private chi.Router) {
				private.Use(params.Guard.RequireAuth)
				private.Route("/tasks", params.TasksHandler.MountRoutes)
				private.Route("/projects", params.ProjectsHandler.MountRoutes)
				private.Route("/attachments", params.AttachmentsHandler.MountRoutes)
			})

			rest.Group(func(admin chi.Router) {
				admin.Use(params.Guard.RequireRole(auth.RoleAdmin))
				admin.Route("/users", params.UsersHandler.MountRoutes)
			})

			if params.JobHandler != nil {
				rest.Group(func(admin chi.Router) {
					admin.Use(params.Guard.RequireRole(auth.RoleAdmin))
					admin.Route("/jobs", params.JobHandler.MountRoutes)
				})
			}
		})

		if params.Notifier != nil {
			api.Route("/events", params.Notifier.MountRoutes)
		}
	})

	return r
}
