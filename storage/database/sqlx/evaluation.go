package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
)

type (
	marksRepository struct {
		db *DB
	}

	marksRow struct {
		ID           string    `db:"id"`
		SubmissionID string    `db:"submission_id"`
		EvaluatorID  string    `db:"evaluator_id"`
		Score        float64   `db:"score"`
		Comments     string    `db:"comments"`
		IsFinal      bool      `db:"is_final"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}
)

var _ evaluation.Repository = (*marksRepository)(nil)

func NewMarksRepository(db *DB) evaluation.Repository {
	return &marksRepository{db: db}
}

func (r marksRow) marks() evaluation.Marks {
	return evaluation.Marks{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		EvaluatorID:  r.EvaluatorID,
		Score:        r.Score,
		Comments:     r.Comments,
		IsFinal:      r.IsFinal,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

const marksColumns = `id, submission_id, evaluator_id, score, comments, is_final, created_at, updated_at`

func (repo *marksRepository) GetMarks(ctx context.Context, submissionID, evaluatorID string) (evaluation.Marks, error) {
	var row marksRow
	q := `SELECT ` + marksColumns + ` FROM evaluation_marks WHERE submission_id = $1 AND evaluator_id = $2`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, submissionID, evaluatorID); err != nil {
		return evaluation.Marks{}, trapErr(err, evaluation.Entity, submissionID+"/"+evaluatorID, "getting marks")
	}
	return row.marks(), nil
}

// UpsertMarks never overwrites finalized marks.
func (repo *marksRepository) UpsertMarks(ctx context.Context, m evaluation.Marks) (evaluation.Marks, error) {
	var row marksRow
	q := `INSERT INTO evaluation_marks (` + marksColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (submission_id, evaluator_id) DO UPDATE
		SET score = EXCLUDED.score, comments = EXCLUDED.comments, is_final = EXCLUDED.is_final, updated_at = EXCLUDED.updated_at
		WHERE NOT evaluation_marks.is_final
	RETURNING ` + marksColumns
	err := sqlx.GetContext(
		ctx, repo.db.ext(ctx), &row, q,
		m.ID, m.SubmissionID, m.EvaluatorID, m.Score, m.Comments, m.IsFinal, m.CreatedAt, m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// the conflicting row is final
		return evaluation.Marks{}, core.NewConflictError(evaluation.Entity, m.ID, "finalized marks cannot be changed")
	}
	if err != nil {
		return evaluation.Marks{}, trapErr(err, evaluation.Entity, m.ID, "upserting marks")
	}
	return row.marks(), nil
}

func (repo *marksRepository) QueryMarks(ctx context.Context, submissionID string) ([]evaluation.Marks, error) {
	var rows []marksRow
	q := `SELECT ` + marksColumns + ` FROM evaluation_marks WHERE submission_id = $1 ORDER BY created_at, evaluator_id`
	if err := sqlx.SelectContext(ctx, repo.db.ext(ctx), &rows, q, submissionID); err != nil {
		return nil, trapErr(err, evaluation.Entity, "", "querying marks")
	}
	marks := make([]evaluation.Marks, 0, len(rows))
	for _, row := range rows {
		marks = append(marks, row.marks())
	}
	return marks, nil
}

func (repo *marksRepository) CountMarks(ctx context.Context, submissionID string) (total, final int, err error) {
	var counts struct {
		Total int `db:"total"`
		Final int `db:"final"`
	}
	q := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_final) AS final FROM evaluation_marks WHERE submission_id = $1`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &counts, q, submissionID); err != nil {
		return 0, 0, trapErr(err, evaluation.Entity, "", "counting marks")
	}
	return counts.Total, counts.Final, nil
}
