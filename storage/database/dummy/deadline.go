package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
)

const batchEntity = "deadline batch"

type batchRepository struct {
	db *DB
}

var _ deadline.Repository = (*batchRepository)(nil)

func NewBatchRepository(db *DB) deadline.Repository {
	return &batchRepository{db: db}
}

func copyBatch(b deadline.Batch) deadline.Batch {
	out := b
	out.Deadlines = make([]deadline.Deadline, len(b.Deadlines))
	copy(out.Deadlines, b.Deadlines)
	if b.AppliesUntil != nil {
		until := *b.AppliesUntil
		out.AppliesUntil = &until
	}
	return out
}

func (repo *batchRepository) CreateBatch(ctx context.Context, b deadline.Batch) (deadline.Batch, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		saved := copyBatch(b)
		db.batch[b.ID] = &saved
		return func() { delete(db.batch, b.ID) }, nil
	})
	if err != nil {
		return deadline.Batch{}, err
	}
	return b, nil
}

func (repo *batchRepository) GetBatch(_ context.Context, id string) (deadline.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if b, ok := repo.db.batch[id]; ok {
		return copyBatch(*b), nil
	}
	return deadline.Batch{}, core.NewNotFoundError(batchEntity, id)
}

func (repo *batchRepository) QueryBatches(_ context.Context, activeOnly bool) ([]deadline.Batch, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	batches := make([]deadline.Batch, 0, len(repo.db.batch))
	for _, b := range repo.db.batch {
		if activeOnly && !b.IsActive {
			continue
		}
		batches = append(batches, copyBatch(*b))
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].AppliesFrom.Before(batches[j].AppliesFrom) })
	return batches, nil
}

func (repo *batchRepository) SetBatchActive(ctx context.Context, id string, active bool) (deadline.Batch, error) {
	db := repo.db
	var b deadline.Batch
	err := db.write(ctx, func() (func(), error) {
		orig, ok := db.batch[id]
		if !ok {
			return nil, core.NewNotFoundError(batchEntity, id)
		}
		prev := orig.IsActive
		orig.IsActive = active
		b = copyBatch(*orig)
		return func() { orig.IsActive = prev }, nil
	})
	return b, err
}
