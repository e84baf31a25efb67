package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/store"
)

// CreateProject creates a project.
func (d *DB) CreateProject(ctx context.Context, create *store.Project) (*store.Project, error) {
	skills := create.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	skillsJSON, err := json.Marshal(skills)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal required skills")
	}

	stmt := `
		INSERT INTO project (id, client_id, title, description, required_skills, budget_range, duration, status, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.ClientID,
		create.Title,
		create.Description,
		string(skillsJSON),
		create.BudgetRange,
		create.Duration,
		string(create.Status),
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}

	return create, nil
}

// GetProject gets a project by id. Returns nil when not found.
func (d *DB) GetProject(ctx context.Context, id string) (*store.Project, error) {
	query := `
		SELECT id, client_id, title, description, required_skills, budget_range, duration, status, created_ts
		FROM project
		WHERE id = ?
	`
	project, err := scanProject(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return project, nil
}

// ListProjects lists projects, oldest first so ranking output is stable
// across calls with an unchanged store.
func (d *DB) ListProjects(ctx context.Context, find *store.FindProject) ([]*store.Project, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.ClientID != nil {
		where, args = append(where, "client_id = ?"), append(args, *find.ClientID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, string(*find.Status))
	}

	query := `
		SELECT id, client_id, title, description, required_skills, budget_range, duration, status, created_ts
		FROM project
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list projects")
	}
	defer rows.Close()

	list := []*store.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func scanProject(row rowScanner) (*store.Project, error) {
	var project store.Project
	var skillsJSON string
	var status string

	if err := row.Scan(
		&project.ID,
		&project.ClientID,
		&project.Title,
		&project.Description,
		&skillsJSON,
		&project.BudgetRange,
		&project.Duration,
		&status,
		&project.CreatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan project")
	}

	project.Status = store.ProjectStatus(status)
	if err := json.Unmarshal([]byte(skillsJSON), &project.RequiredSkills); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal required skills")
	}
	return &project, nil
}

// UpdateProjectStatus moves a project between lifecycle states.
func (d *DB) UpdateProjectStatus(ctx context.Context, id string, status store.ProjectStatus) error {
	result, err := d.db.ExecContext(ctx, `UPDATE project SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return errors.Wrap(err, "failed to update project status")
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Errorf("project %s not found", id)
	}
	return nil
}

// CreateProjectApplication records an application with its final match score.
func (d *DB) CreateProjectApplication(ctx context.Context, create *store.ProjectApplication) (*store.ProjectApplication, error) {
	stmt := `
		INSERT INTO project_application (id, project_id, applicant_id, proposal, match_score, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.ProjectID,
		create.ApplicantID,
		create.Proposal,
		create.MatchScore,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create project application")
	}
	return create, nil
}

// ListProjectApplications lists applications for a project.
func (d *DB) ListProjectApplications(ctx context.Context, projectID string) ([]*store.ProjectApplication, error) {
	query := `
		SELECT id, project_id, applicant_id, proposal, match_score, created_ts
		FROM project_application
		WHERE project_id = ?
		ORDER BY match_score DESC, created_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list project applications")
	}
	defer rows.Close()

	list := []*store.ProjectApplication{}
	for rows.Next() {
		var application store.ProjectApplication
		if err := rows.Scan(
			&application.ID,
			&application.ProjectID,
			&application.ApplicantID,
			&application.Proposal,
			&application.MatchScore,
			&application.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan project application")
		}
		list = append(list, &application)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
