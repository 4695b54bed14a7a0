package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
)

type marksRepository struct {
	db *DB
}

var _ evaluation.Repository = (*marksRepository)(nil)

func NewMarksRepository(db *DB) evaluation.Repository {
	return &marksRepository{db: db}
}

func (repo *marksRepository) GetMarks(_ context.Context, submissionID, evaluatorID string) (evaluation.Marks, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.marks[pairKey(submissionID, evaluatorID)]; ok {
		return *m, nil
	}
	return evaluation.Marks{}, core.NewNotFoundError(evaluation.Entity, pairKey(submissionID, evaluatorID))
}

func (repo *marksRepository) UpsertMarks(ctx context.Context, m evaluation.Marks) (evaluation.Marks, error) {
	db := repo.db
	key := pairKey(m.SubmissionID, m.EvaluatorID)
	err := db.write(ctx, func() (func(), error) {
		prev, existed := db.marks[key]
		if existed && prev.IsFinal {
			return nil, core.NewConflictError(evaluation.Entity, prev.ID, "finalized marks cannot be changed")
		}
		saved := m
		if existed {
			// the pair keeps its identity
			saved.ID, saved.CreatedAt = prev.ID, prev.CreatedAt
		}
		m = saved
		db.marks[key] = &saved
		return func() {
			if existed {
				db.marks[key] = prev
			} else {
				delete(db.marks, key)
			}
		}, nil
	})
	if err != nil {
		return evaluation.Marks{}, err
	}
	return m, nil
}

func (repo *marksRepository) query(submissionID string) []evaluation.Marks {
	marks := make([]evaluation.Marks, 0)
	for _, m := range repo.db.marks {
		if m.SubmissionID == submissionID {
			marks = append(marks, *m)
		}
	}
	sort.Slice(marks, func(i, j int) bool {
		if !marks[i].CreatedAt.Equal(marks[j].CreatedAt) {
			return marks[i].CreatedAt.Before(marks[j].CreatedAt)
		}
		return marks[i].EvaluatorID < marks[j].EvaluatorID
	})
	return marks
}

func (repo *marksRepository) QueryMarks(_ context.Context, submissionID string) ([]evaluation.Marks, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(submissionID), nil
}

func (repo *marksRepository) CountMarks(_ context.Context, submissionID string) (total, final int, err error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, m := range repo.query(submissionID) {
		total++
		if m.IsFinal {
			final++
		}
	}
	return total, final, nil
}
