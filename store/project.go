package store

import (
	"context"

	"github.com/pkg/errors"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusOpen       ProjectStatus = "open"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

// Project represents a posted project looking for candidates.
type Project struct {
	ID             string
	ClientID       string
	Title          string
	Description    string
	RequiredSkills []string
	BudgetRange    string
	Duration       string
	Status         ProjectStatus
	CreatedTs      int64
}

// FindProject is the find condition for projects.
type FindProject struct {
	ID       *string
	ClientID *string
	Status   *ProjectStatus
	Limit    int
}

// ProjectApplication represents a user's application to a project. The match
// score computed during ranking is persisted only here, on the final
// application; intermediate candidate scores are request-scoped.
type ProjectApplication struct {
	ID          string
	ProjectID   string
	ApplicantID string
	Proposal    string
	MatchScore  float32
	CreatedTs   int64
}

// CreateProject creates a project.
func (s *Store) CreateProject(ctx context.Context, create *Project) (*Project, error) {
	if create.Title == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "project title cannot be empty")
	}
	return s.driver.CreateProject(ctx, create)
}

// GetProject gets a project by id. Returns nil when not found.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	return s.driver.GetProject(ctx, id)
}

// ListProjects lists projects.
func (s *Store) ListProjects(ctx context.Context, find *FindProject) ([]*Project, error) {
	return s.driver.ListProjects(ctx, find)
}

// ListOpenProjects lists projects currently open for applications.
func (s *Store) ListOpenProjects(ctx context.Context) ([]*Project, error) {
	status := ProjectStatusOpen
	return s.driver.ListProjects(ctx, &FindProject{Status: &status})
}

// UpdateProjectStatus moves a project between lifecycle states.
func (s *Store) UpdateProjectStatus(ctx context.Context, id string, status ProjectStatus) error {
	switch status {
	case ProjectStatusOpen, ProjectStatusInProgress, ProjectStatusCompleted:
	default:
		return errors.Wrapf(ErrInvalidArgument, "unknown project status: %s", status)
	}
	return s.driver.UpdateProjectStatus(ctx, id, status)
}

// CreateProjectApplication records an application with its final match score.
func (s *Store) CreateProjectApplication(ctx context.Context, create *ProjectApplication) (*ProjectApplication, error) {
	if create.ProjectID == "" || create.ApplicantID == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "project id and applicant id required")
	}
	return s.driver.CreateProjectApplication(ctx, create)
}

// ListProjectApplications lists applications for a project.
func (s *Store) ListProjectApplications(ctx context.Context, projectID string) ([]*ProjectApplication, error) {
	return s.driver.ListProjectApplications(ctx, projectID)
}
