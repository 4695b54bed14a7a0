package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/submission"
)

type (
	submissionRepository struct {
		db *DB
	}

	submissionRow struct {
		ID                   string       `db:"id"`
		ProjectID            string       `db:"project_id"`
		DocumentTypeID       string       `db:"document_type_id"`
		Version              int          `db:"version"`
		Status               string       `db:"status"`
		IsFinal              bool         `db:"is_final"`
		FileName             string       `db:"file_name"`
		UploadedBy           string       `db:"uploaded_by"`
		UploadedAt           time.Time    `db:"uploaded_at"`
		IsLate               bool         `db:"is_late"`
		SupervisorReviewedBy null.String  `db:"supervisor_reviewed_by"`
		SupervisorReviewedAt null.Time    `db:"supervisor_reviewed_at"`
		SupervisorScore      null.Float64 `db:"supervisor_score"`
		Comments             null.String  `db:"comments"`
		UpdatedAt            time.Time    `db:"updated_at"`
	}
)

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func (r submissionRow) submission() submission.Submission {
	s := submission.Submission{
		ID:                   r.ID,
		ProjectID:            r.ProjectID,
		DocumentTypeID:       r.DocumentTypeID,
		Version:              r.Version,
		Status:               submission.Status(r.Status),
		IsFinal:              r.IsFinal,
		FileName:             r.FileName,
		UploadedBy:           r.UploadedBy,
		UploadedAt:           r.UploadedAt.UTC(),
		IsLate:               r.IsLate,
		SupervisorReviewedBy: r.SupervisorReviewedBy.String,
		SupervisorScore:      r.SupervisorScore.Ptr(),
		Comments:             r.Comments.String,
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
	if r.SupervisorReviewedAt.Valid {
		at := r.SupervisorReviewedAt.Time.UTC()
		s.SupervisorReviewedAt = &at
	}
	return s
}

func submissionArgs(s submission.Submission) []interface{} {
	return []interface{}{
		s.ID,
		s.ProjectID,
		s.DocumentTypeID,
		s.Version,
		string(s.Status),
		s.IsFinal,
		s.FileName,
		s.UploadedBy,
		s.UploadedAt,
		s.IsLate,
		null.NewString(s.SupervisorReviewedBy, s.SupervisorReviewedBy != ""),
		null.TimeFromPtr(s.SupervisorReviewedAt),
		null.Float64FromPtr(s.SupervisorScore),
		null.NewString(s.Comments, s.Comments != ""),
		s.UpdatedAt,
	}
}

const submissionColumns = `id, project_id, document_type_id, version, status, is_final, file_name, uploaded_by, uploaded_at,
	is_late, supervisor_reviewed_by, supervisor_reviewed_at, supervisor_score, comments, updated_at`

// NextVersion bumps the pair counter. The upserted row stays locked until the transaction ends,
// so concurrent uploads of the pair queue up behind it.
func (repo *submissionRepository) NextVersion(ctx context.Context, projectID, docTypeID string) (int, error) {
	var version int
	q := `INSERT INTO submission_versions (project_id, document_type_id, last_version) VALUES ($1, $2, 1)
	ON CONFLICT (project_id, document_type_id) DO UPDATE SET last_version = submission_versions.last_version + 1
	RETURNING last_version`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &version, q, projectID, docTypeID); err != nil {
		return 0, trapErr(err, submission.Entity, "", "incrementing submission version")
	}
	return version, nil
}

// LockPair locks the counter row of the pair. A pair without uploads has nothing to lock.
func (repo *submissionRepository) LockPair(ctx context.Context, projectID, docTypeID string) error {
	var version int
	q := `SELECT last_version FROM submission_versions WHERE project_id = $1 AND document_type_id = $2 FOR UPDATE`
	err := sqlx.GetContext(ctx, repo.db.ext(ctx), &version, q, projectID, docTypeID)
	if err != nil && err != sql.ErrNoRows {
		return trapErr(err, submission.Entity, "", "locking submission version")
	}
	return nil
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	q := `INSERT INTO submissions (` + submissionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	if _, err := repo.db.ext(ctx).ExecContext(ctx, q, submissionArgs(s)...); err != nil {
		return submission.Submission{}, trapErr(err, submission.Entity, s.ID, "inserting submission")
	}
	return s, nil
}

func (repo *submissionRepository) get(ctx context.Context, id, suffix string) (submission.Submission, error) {
	var row submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1` + suffix
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, id); err != nil {
		return submission.Submission{}, trapErr(err, submission.Entity, id, "getting submission")
	}
	return row.submission(), nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	return repo.get(ctx, id, "")
}

func (repo *submissionRepository) GetSubmissionForUpdate(ctx context.Context, id string) (submission.Submission, error) {
	return repo.get(ctx, id, " FOR UPDATE")
}

func (repo *submissionRepository) LatestSubmission(ctx context.Context, projectID, docTypeID string) (submission.Submission, error) {
	var row submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submissions
	WHERE project_id = $1 AND document_type_id = $2
	ORDER BY version DESC
	LIMIT 1`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, projectID, docTypeID); err != nil {
		return submission.Submission{}, trapErr(err, submission.Entity, "", "getting latest submission")
	}
	return row.submission(), nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, projectID, docTypeID string) ([]submission.Submission, error) {
	var rows []submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submissions
	WHERE project_id = $1 AND document_type_id = $2
	ORDER BY version`
	if err := sqlx.SelectContext(ctx, repo.db.ext(ctx), &rows, q, projectID, docTypeID); err != nil {
		return nil, trapErr(err, submission.Entity, "", "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}

func (repo *submissionRepository) HasFinalVersion(ctx context.Context, projectID, docTypeID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM submissions WHERE project_id = $1 AND document_type_id = $2 AND is_final)`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &exists, q, projectID, docTypeID); err != nil {
		return false, trapErr(err, submission.Entity, "", "checking final versions")
	}
	return exists, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	q := `UPDATE submissions SET
		status = $2, is_final = $3, supervisor_reviewed_by = $4, supervisor_reviewed_at = $5,
		supervisor_score = $6, comments = $7, updated_at = $8
	WHERE id = $1`
	res, err := repo.db.ext(ctx).ExecContext(
		ctx, q,
		s.ID,
		string(s.Status),
		s.IsFinal,
		null.NewString(s.SupervisorReviewedBy, s.SupervisorReviewedBy != ""),
		null.TimeFromPtr(s.SupervisorReviewedAt),
		null.Float64FromPtr(s.SupervisorScore),
		null.NewString(s.Comments, s.Comments != ""),
		s.UpdatedAt,
	)
	if err != nil {
		return submission.Submission{}, trapErr(err, submission.Entity, s.ID, "updating submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return submission.Submission{}, core.NewNotFoundError(submission.Entity, s.ID)
	}
	return s, nil
}
