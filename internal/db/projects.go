package db

import (
	"context"
	"database/sql"

	"github.com/Joseda-hg/lazynote/internal/model"
)

const projectColumns = "id, owner_id, name, description, created_at, updated_at"

func (q *Queries) CreateProject(ctx context.Context, project model.Project) (model.Project, error) {
	_, err := q.exec(ctx, "INSERT INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		project.ID,
		project.OwnerID,
		project.Name,
		nullString(project.Description),
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return model.Project{}, err
	}
	return q.GetProject(ctx, project.ID)
}

func (q *Queries) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := q.queryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

func (q *Queries) ListProjects(ctx context.Context, ownerID string) ([]model.Project, error) {
	rows, err := q.query(ctx, "SELECT "+projectColumns+" FROM projects WHERE owner_id = ? ORDER BY name ASC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (q *Queries) DeleteProject(ctx context.Context, id string) error {
	result, err := q.exec(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanProject(row rowScanner) (model.Project, error) {
	var (
		project     model.Project
		description sql.NullString
	)
	if err := row.Scan(&project.ID, &project.OwnerID, &project.Name, &description, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return model.Project{}, mapError(err)
	}
	project.Description = stringPtr(description)
	project.CreatedAt = project.CreatedAt.UTC()
	project.UpdatedAt = project.UpdatedAt.UTC()
	return project, nil
}
