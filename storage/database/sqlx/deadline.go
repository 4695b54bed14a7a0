package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
)

const batchEntity = "deadline batch"

type (
	batchRepository struct {
		db *DB
	}

	batchRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		AppliesFrom  time.Time `db:"applies_from"`
		AppliesUntil null.Time `db:"applies_until"`
		IsActive     bool      `db:"is_active"`
		CreatedAt    time.Time `db:"created_at"`
	}

	deadlineRow struct {
		BatchID        string    `db:"batch_id"`
		DocumentTypeID string    `db:"document_type_id"`
		DeadlineDate   time.Time `db:"deadline_date"`
		SortOrder      int       `db:"sort_order"`
	}
)

var _ deadline.Repository = (*batchRepository)(nil)

func NewBatchRepository(db *DB) deadline.Repository {
	return &batchRepository{db: db}
}

func (r batchRow) batch() deadline.Batch {
	b := deadline.Batch{
		ID:          r.ID,
		Name:        r.Name,
		AppliesFrom: r.AppliesFrom.UTC(),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
		Deadlines:   []deadline.Deadline{},
	}
	if r.AppliesUntil.Valid {
		until := r.AppliesUntil.Time.UTC()
		b.AppliesUntil = &until
	}
	return b
}

const (
	batchColumns    = `id, name, applies_from, applies_until, is_active, created_at`
	deadlineColumns = `batch_id, document_type_id, deadline_date, sort_order`
)

func (repo *batchRepository) CreateBatch(ctx context.Context, b deadline.Batch) (deadline.Batch, error) {
	err := repo.db.WithinTx(ctx, func(ctx context.Context) error {
		ext := repo.db.ext(ctx)
		q := `INSERT INTO deadline_batches (` + batchColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := ext.ExecContext(ctx, q, b.ID, b.Name, b.AppliesFrom, null.TimeFromPtr(b.AppliesUntil), b.IsActive, b.CreatedAt); err != nil {
			return trapErr(err, batchEntity, b.ID, "inserting deadline batch")
		}
		for _, d := range b.Deadlines {
			q := `INSERT INTO project_deadlines (` + deadlineColumns + `) VALUES ($1, $2, $3, $4)`
			if _, err := ext.ExecContext(ctx, q, b.ID, d.DocumentTypeID, d.DeadlineDate, d.SortOrder); err != nil {
				return trapErr(err, batchEntity, b.ID, "inserting project deadline")
			}
		}
		return nil
	})
	if err != nil {
		return deadline.Batch{}, err
	}
	return b, nil
}

// withDeadlines loads the deadlines of the batches, ordered by sort order.
func (repo *batchRepository) withDeadlines(ctx context.Context, rows []batchRow) ([]deadline.Batch, error) {
	batches := make([]deadline.Batch, 0, len(rows))
	if len(rows) == 0 {
		return batches, nil
	}

	ids := make([]string, 0, len(rows))
	idx := make(map[string]int, len(rows))
	for i, row := range rows {
		ids = append(ids, row.ID)
		idx[row.ID] = i
		batches = append(batches, row.batch())
	}

	q, args, err := sqlx.In(`SELECT `+deadlineColumns+` FROM project_deadlines WHERE batch_id IN (?) ORDER BY sort_order`, ids)
	if err != nil {
		return nil, trapErr(err, batchEntity, "", "building deadlines query")
	}
	var drows []deadlineRow
	if err := sqlx.SelectContext(ctx, repo.db.ext(ctx), &drows, sqlx.Rebind(sqlx.DOLLAR, q), args...); err != nil {
		return nil, trapErr(err, batchEntity, "", "querying project deadlines")
	}
	for _, d := range drows {
		b := &batches[idx[d.BatchID]]
		b.Deadlines = append(b.Deadlines, deadline.Deadline{
			DocumentTypeID: d.DocumentTypeID,
			DeadlineDate:   d.DeadlineDate.UTC(),
			SortOrder:      d.SortOrder,
		})
	}
	return batches, nil
}

func (repo *batchRepository) GetBatch(ctx context.Context, id string) (deadline.Batch, error) {
	var row batchRow
	q := `SELECT ` + batchColumns + ` FROM deadline_batches WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, id); err != nil {
		return deadline.Batch{}, trapErr(err, batchEntity, id, "getting deadline batch")
	}
	batches, err := repo.withDeadlines(ctx, []batchRow{row})
	if err != nil {
		return deadline.Batch{}, err
	}
	return batches[0], nil
}

func (repo *batchRepository) QueryBatches(ctx context.Context, activeOnly bool) ([]deadline.Batch, error) {
	var rows []batchRow
	q := `SELECT ` + batchColumns + ` FROM deadline_batches WHERE ($1 = FALSE OR is_active) ORDER BY applies_from, created_at`
	if err := sqlx.SelectContext(ctx, repo.db.ext(ctx), &rows, q, activeOnly); err != nil {
		return nil, trapErr(err, batchEntity, "", "querying deadline batches")
	}
	return repo.withDeadlines(ctx, rows)
}

func (repo *batchRepository) SetBatchActive(ctx context.Context, id string, active bool) (deadline.Batch, error) {
	res, err := repo.db.ext(ctx).ExecContext(ctx, `UPDATE deadline_batches SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return deadline.Batch{}, trapErr(err, batchEntity, id, "updating deadline batch")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return deadline.Batch{}, core.NewNotFoundError(batchEntity, id)
	}
	return repo.GetBatch(ctx, id)
}
