package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/fyp/core/project"
)

type (
	projectRepository struct {
		db *DB
	}

	projectRow struct {
		ID         string    `db:"id"`
		Title      string    `db:"title"`
		ApprovedAt null.Time `db:"approved_at"`
		CreatedAt  time.Time `db:"created_at"`
	}
)

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db}
}

func (r projectRow) project() project.Project {
	p := project.Project{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt.UTC()}
	if r.ApprovedAt.Valid {
		at := r.ApprovedAt.Time.UTC()
		p.ApprovedAt = &at
	}
	return p
}

func (repo *projectRepository) GetProject(ctx context.Context, id string) (project.Project, error) {
	var row projectRow
	q := `SELECT id, title, approved_at, created_at FROM projects WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, id); err != nil {
		return project.Project{}, trapErr(err, project.Entity, id, "getting project")
	}
	return row.project(), nil
}

func (repo *projectRepository) SaveProject(ctx context.Context, p project.Project) (project.Project, error) {
	q := `INSERT INTO projects (id, title, approved_at, created_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, approved_at = EXCLUDED.approved_at`
	if _, err := repo.db.ext(ctx).ExecContext(ctx, q, p.ID, p.Title, null.TimeFromPtr(p.ApprovedAt), p.CreatedAt); err != nil {
		return project.Project{}, trapErr(err, project.Entity, p.ID, "saving project")
	}
	return p, nil
}
