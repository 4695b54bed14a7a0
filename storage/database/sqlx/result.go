package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/fyp/core/result"
)

type (
	resultRepository struct {
		db *DB
	}

	resultRow struct {
		ProjectID  string           `db:"project_id"`
		TotalScore float64          `db:"total_score"`
		Details    result.Breakdown `db:"details"`
		Released   bool             `db:"released"`
		ReleasedBy null.String      `db:"released_by"`
		ReleasedAt null.Time        `db:"released_at"`
		ComputedAt time.Time        `db:"computed_at"`
	}
)

var _ result.Repository = (*resultRepository)(nil)

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db}
}

func (r resultRow) result() result.FinalResult {
	res := result.FinalResult{
		ProjectID:  r.ProjectID,
		TotalScore: r.TotalScore,
		Details:    r.Details,
		Released:   r.Released,
		ReleasedBy: r.ReleasedBy.String,
		ComputedAt: r.ComputedAt.UTC(),
	}
	res.Details.ComputedAt = res.Details.ComputedAt.UTC()
	if r.ReleasedAt.Valid {
		at := r.ReleasedAt.Time.UTC()
		res.ReleasedAt = &at
	}
	return res
}

const resultColumns = `project_id, total_score, details, released, released_by, released_at, computed_at`

func (repo *resultRepository) get(ctx context.Context, projectID, suffix string) (result.FinalResult, error) {
	var row resultRow
	q := `SELECT ` + resultColumns + ` FROM final_results WHERE project_id = $1` + suffix
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, projectID); err != nil {
		return result.FinalResult{}, trapErr(err, result.Entity, projectID, "getting final result")
	}
	return row.result(), nil
}

func (repo *resultRepository) GetResult(ctx context.Context, projectID string) (result.FinalResult, error) {
	return repo.get(ctx, projectID, "")
}

func (repo *resultRepository) GetResultForUpdate(ctx context.Context, projectID string) (result.FinalResult, error) {
	return repo.get(ctx, projectID, " FOR UPDATE")
}

// SaveResult leaves released results untouched.
func (repo *resultRepository) SaveResult(ctx context.Context, r result.FinalResult) (result.FinalResult, error) {
	var row resultRow
	q := `INSERT INTO final_results (` + resultColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (project_id) DO UPDATE
		SET total_score = EXCLUDED.total_score, details = EXCLUDED.details, released = EXCLUDED.released,
			released_by = EXCLUDED.released_by, released_at = EXCLUDED.released_at, computed_at = EXCLUDED.computed_at
		WHERE NOT final_results.released
	RETURNING ` + resultColumns
	err := sqlx.GetContext(
		ctx, repo.db.ext(ctx), &row, q,
		r.ProjectID, r.TotalScore, r.Details, r.Released,
		null.NewString(r.ReleasedBy, r.ReleasedBy != ""), null.TimeFromPtr(r.ReleasedAt), r.ComputedAt,
	)
	if err != nil {
		return result.FinalResult{}, trapErr(err, result.Entity, r.ProjectID, "saving final result")
	}
	return row.result(), nil
}
