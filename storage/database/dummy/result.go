package dummydb

import (
	"context"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil)

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db}
}

func copyResult(r result.FinalResult) result.FinalResult {
	out := r
	out.Details.Items = make([]result.BreakdownItem, len(r.Details.Items))
	copy(out.Details.Items, r.Details.Items)
	if r.ReleasedAt != nil {
		at := *r.ReleasedAt
		out.ReleasedAt = &at
	}
	return out
}

func (repo *resultRepository) GetResult(_ context.Context, projectID string) (result.FinalResult, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.result[projectID]; ok {
		return copyResult(*r), nil
	}
	return result.FinalResult{}, core.NewNotFoundError(result.Entity, projectID)
}

func (repo *resultRepository) GetResultForUpdate(ctx context.Context, projectID string) (result.FinalResult, error) {
	repo.db.lockRow(ctx, "result:"+projectID)
	return repo.GetResult(ctx, projectID)
}

func (repo *resultRepository) SaveResult(ctx context.Context, r result.FinalResult) (result.FinalResult, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		prev, existed := db.result[r.ProjectID]
		saved := copyResult(r)
		db.result[r.ProjectID] = &saved
		return func() {
			if existed {
				db.result[r.ProjectID] = prev
			} else {
				delete(db.result, r.ProjectID)
			}
		}, nil
	})
	if err != nil {
		return result.FinalResult{}, err
	}
	return r, nil
}
