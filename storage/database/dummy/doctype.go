package dummydb

import (
	"context"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
)

const docTypeEntity = "document type"

type docTypeRepository struct {
	db *DB
}

var _ doctype.Repository = (*docTypeRepository)(nil) // interface compliance check

func NewDocumentTypeRepository(db *DB) doctype.Repository {
	return &docTypeRepository{db: db}
}

func (repo *docTypeRepository) CreateDocumentType(ctx context.Context, dt doctype.DocumentType) (doctype.DocumentType, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		for _, other := range db.docType {
			if other.Code == dt.Code {
				return nil, core.NewConflictError(docTypeEntity, string(dt.Code), "code already exists")
			}
		}
		saved := dt
		db.docType[dt.ID] = &saved
		return func() { delete(db.docType, dt.ID) }, nil
	})
	if err != nil {
		return doctype.DocumentType{}, err
	}
	return dt, nil
}

func (repo *docTypeRepository) GetDocumentType(_ context.Context, id string) (doctype.DocumentType, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if dt, ok := repo.db.docType[id]; ok {
		return *dt, nil
	}
	return doctype.DocumentType{}, core.NewNotFoundError(docTypeEntity, id)
}

func (repo *docTypeRepository) GetDocumentTypeByCode(_ context.Context, code doctype.Code) (doctype.DocumentType, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, dt := range repo.db.docType {
		if dt.Code == code {
			return *dt, nil
		}
	}
	return doctype.DocumentType{}, core.NewNotFoundError(docTypeEntity, string(code))
}

func (repo *docTypeRepository) QueryDocumentTypes(_ context.Context, activeOnly bool) ([]doctype.DocumentType, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	dts := make([]doctype.DocumentType, 0, len(repo.db.docType))
	for _, dt := range repo.db.docType {
		if activeOnly && !dt.IsActive {
			continue
		}
		dts = append(dts, *dt)
	}
	doctype.SortByDisplayOrder(dts)
	return dts, nil
}

func (repo *docTypeRepository) Stamp(_ context.Context) (doctype.Stamp, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stamp := doctype.Stamp{Count: len(repo.db.docType)}
	for _, dt := range repo.db.docType {
		if dt.UpdatedAt.After(stamp.UpdatedAt) {
			stamp.UpdatedAt = dt.UpdatedAt
		}
	}
	return stamp, nil
}

func (repo *docTypeRepository) UpdateDocumentType(ctx context.Context, dt doctype.DocumentType) (doctype.DocumentType, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		orig, ok := db.docType[dt.ID]
		if !ok {
			return nil, core.NewNotFoundError(docTypeEntity, dt.ID)
		}
		prev := *orig
		dt.Code, dt.CreatedAt = prev.Code, prev.CreatedAt // immutable
		saved := dt
		db.docType[dt.ID] = &saved
		return func() { db.docType[prev.ID] = &prev }, nil
	})
	if err != nil {
		return doctype.DocumentType{}, err
	}
	return dt, nil
}
