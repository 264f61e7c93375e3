package projects

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/platform/httpx"
	"github.com/taskflow/taskflow/internal/policy"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Service applies the access rules around project persistence.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every project. Projects are shared, so visibility is not
// role-scoped.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	return s.repo.List(ctx)
}

// Create inserts a project. Invalid colors fall back to the default instead
// of failing the request.
func (s *Service) Create(ctx context.Context, p auth.Principal, name, color string) (int64, error) {
	if !policy.CanManageProjects(p) {
		return 0, httpx.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: project name is required", httpx.ErrInvalidInput)
	}
	return s.repo.Create(ctx, Project{Name: name, Color: normalizeColor(color), CreatedBy: p.ID})
}

// Update renames or recolors a project.
func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, name, color string) error {
	if !policy.CanManageProjects(p) {
		return httpx.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: project name is required", httpx.ErrInvalidInput)
	}
	return s.repo.Update(ctx, Project{ID: id, Name: name, Color: normalizeColor(color)})
}

// Delete removes a project; its tasks survive without a project. The
// returned count is how many tasks were detached.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) (int64, error) {
	if !policy.CanManageProjects(p) {
		return 0, httpx.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func normalizeColor(color string) string {
	if !colorPattern.MatchString(color) {
		return DefaultColor
	}
	return color
}
