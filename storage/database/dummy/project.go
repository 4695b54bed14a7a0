package dummydb

import (
	"context"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil)

func NewProjectRepository(db *DB) project.Repository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) GetProject(_ context.Context, id string) (project.Project, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.project[id]; ok {
		return *p, nil
	}
	return project.Project{}, core.NewNotFoundError(project.Entity, id)
}

func (repo *projectRepository) SaveProject(ctx context.Context, p project.Project) (project.Project, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		saved := p
		prev, existed := db.project[p.ID]
		db.project[p.ID] = &saved
		return func() {
			if existed {
				db.project[p.ID] = prev
			} else {
				delete(db.project, p.ID)
			}
		}, nil
	})
	return p, err
}
