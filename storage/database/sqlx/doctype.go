package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/fyp/core/doctype"
)

const docTypeEntity = "document type"

type (
	docTypeRepository struct {
		db *DB
	}

	docTypeRow struct {
		ID               string    `db:"id"`
		Code             string    `db:"code"`
		Title            string    `db:"title"`
		WeightSupervisor int       `db:"weight_supervisor"`
		WeightCommittee  int       `db:"weight_committee"`
		DisplayOrder     int       `db:"display_order"`
		IsActive         bool      `db:"is_active"`
		CreatedAt        time.Time `db:"created_at"`
		UpdatedAt        time.Time `db:"updated_at"`
	}

	docTypeStampRow struct {
		Count     int       `db:"count"`
		UpdatedAt null.Time `db:"updated_at"`
	}
)

var _ doctype.Repository = (*docTypeRepository)(nil) // interface compliance check

func NewDocumentTypeRepository(db *DB) doctype.Repository {
	return &docTypeRepository{db: db}
}

func (r docTypeRow) docType() doctype.DocumentType {
	return doctype.DocumentType{
		ID:               r.ID,
		Code:             doctype.Code(r.Code),
		Title:            r.Title,
		WeightSupervisor: r.WeightSupervisor,
		WeightCommittee:  r.WeightCommittee,
		DisplayOrder:     r.DisplayOrder,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

const docTypeColumns = `id, code, title, weight_supervisor, weight_committee, display_order, is_active, created_at, updated_at`

func (repo *docTypeRepository) CreateDocumentType(ctx context.Context, dt doctype.DocumentType) (doctype.DocumentType, error) {
	q := `INSERT INTO document_types (` + docTypeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ext(ctx).ExecContext(
		ctx, q,
		dt.ID, dt.Code, dt.Title, dt.WeightSupervisor, dt.WeightCommittee, dt.DisplayOrder, dt.IsActive, dt.CreatedAt, dt.UpdatedAt,
	)
	if err != nil {
		return doctype.DocumentType{}, trapErr(err, docTypeEntity, string(dt.Code), "inserting document type")
	}
	return dt, nil
}

func (repo *docTypeRepository) get(ctx context.Context, where string, arg interface{}, id string) (doctype.DocumentType, error) {
	var row docTypeRow
	q := `SELECT ` + docTypeColumns + ` FROM document_types WHERE ` + where
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q, arg); err != nil {
		return doctype.DocumentType{}, trapErr(err, docTypeEntity, id, "getting document type")
	}
	return row.docType(), nil
}

func (repo *docTypeRepository) GetDocumentType(ctx context.Context, id string) (doctype.DocumentType, error) {
	return repo.get(ctx, "id = $1", id, id)
}

func (repo *docTypeRepository) GetDocumentTypeByCode(ctx context.Context, code doctype.Code) (doctype.DocumentType, error) {
	return repo.get(ctx, "code = $1", string(code), string(code))
}

func (repo *docTypeRepository) QueryDocumentTypes(ctx context.Context, activeOnly bool) ([]doctype.DocumentType, error) {
	var rows []docTypeRow
	q := `SELECT ` + docTypeColumns + ` FROM document_types WHERE ($1 = FALSE OR is_active) ORDER BY display_order, code`
	if err := sqlx.SelectContext(ctx, repo.db.ext(ctx), &rows, q, activeOnly); err != nil {
		return nil, trapErr(err, docTypeEntity, "", "querying document types")
	}
	dts := make([]doctype.DocumentType, 0, len(rows))
	for _, row := range rows {
		dts = append(dts, row.docType())
	}
	return dts, nil
}

func (repo *docTypeRepository) Stamp(ctx context.Context) (doctype.Stamp, error) {
	var row docTypeStampRow
	q := `SELECT count(*) AS count, max(updated_at) AS updated_at FROM document_types`
	if err := sqlx.GetContext(ctx, repo.db.ext(ctx), &row, q); err != nil {
		return doctype.Stamp{}, trapErr(err, docTypeEntity, "", "reading document types stamp")
	}
	return doctype.Stamp{Count: row.Count, UpdatedAt: row.UpdatedAt.Time.UTC()}, nil
}

func (repo *docTypeRepository) UpdateDocumentType(ctx context.Context, dt doctype.DocumentType) (doctype.DocumentType, error) {
	var row docTypeRow
	q := `UPDATE document_types
	SET title = $2, weight_supervisor = $3, weight_committee = $4, display_order = $5, is_active = $6, updated_at = $7
	WHERE id = $1
	RETURNING ` + docTypeColumns
	err := sqlx.GetContext(
		ctx, repo.db.ext(ctx), &row, q,
		dt.ID, dt.Title, dt.WeightSupervisor, dt.WeightCommittee, dt.DisplayOrder, dt.IsActive, dt.UpdatedAt,
	)
	if err != nil {
		return doctype.DocumentType{}, trapErr(err, docTypeEntity, dt.ID, "updating document type")
	}
	return row.docType(), nil
}
