package dummydb

import (
	"context"
	"fmt"
	"sort"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/submission"
)

type submissionRepository struct {
	db *DB
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db}
}

func copySubmission(s submission.Submission) submission.Submission {
	out := s
	if s.SupervisorReviewedAt != nil {
		at := *s.SupervisorReviewedAt
		out.SupervisorReviewedAt = &at
	}
	if s.SupervisorScore != nil {
		score := *s.SupervisorScore
		out.SupervisorScore = &score
	}
	return out
}

func (repo *submissionRepository) NextVersion(ctx context.Context, projectID, docTypeID string) (int, error) {
	db := repo.db
	key := pairKey(projectID, docTypeID)
	db.lockRow(ctx, "version:"+key)

	var version int
	err := db.write(ctx, func() (func(), error) {
		prev, existed := db.version[key]
		version = prev + 1
		db.version[key] = version
		return func() {
			if existed {
				db.version[key] = prev
			} else {
				delete(db.version, key)
			}
		}, nil
	})
	return version, err
}

func (repo *submissionRepository) LockPair(ctx context.Context, projectID, docTypeID string) error {
	repo.db.lockRow(ctx, "version:"+pairKey(projectID, docTypeID))
	return nil
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		for _, other := range db.submission {
			if other.ProjectID == s.ProjectID && other.DocumentTypeID == s.DocumentTypeID && other.Version == s.Version {
				return nil, core.NewConflictError(submission.Entity, "", fmt.Sprintf("version %d already exists", s.Version))
			}
		}
		saved := copySubmission(s)
		db.submission[s.ID] = &saved
		return func() { delete(db.submission, s.ID) }, nil
	})
	if err != nil {
		return submission.Submission{}, err
	}
	return s, nil
}

func (repo *submissionRepository) GetSubmission(_ context.Context, id string) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.submission[id]; ok {
		return copySubmission(*s), nil
	}
	return submission.Submission{}, core.NewNotFoundError(submission.Entity, id)
}

func (repo *submissionRepository) GetSubmissionForUpdate(ctx context.Context, id string) (submission.Submission, error) {
	repo.db.lockRow(ctx, "submission:"+id)
	return repo.GetSubmission(ctx, id)
}

// query returns the versions of a pair, oldest first. The caller must hold the table lock.
func (repo *submissionRepository) query(projectID, docTypeID string) []submission.Submission {
	var subs []submission.Submission
	for _, s := range repo.db.submission {
		if s.ProjectID == projectID && s.DocumentTypeID == docTypeID {
			subs = append(subs, copySubmission(*s))
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Version < subs[j].Version })
	return subs
}

func (repo *submissionRepository) LatestSubmission(_ context.Context, projectID, docTypeID string) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := repo.query(projectID, docTypeID)
	if len(subs) == 0 {
		return submission.Submission{}, core.NewNotFoundError(submission.Entity, "")
	}
	return subs[len(subs)-1], nil
}

func (repo *submissionRepository) QuerySubmissions(_ context.Context, projectID, docTypeID string) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := repo.query(projectID, docTypeID)
	if subs == nil {
		subs = []submission.Submission{}
	}
	return subs, nil
}

func (repo *submissionRepository) HasFinalVersion(_ context.Context, projectID, docTypeID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.submission {
		if s.ProjectID == projectID && s.DocumentTypeID == docTypeID && s.IsFinal {
			return true, nil
		}
	}
	return false, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s submission.Submission) (submission.Submission, error) {
	db := repo.db
	err := db.write(ctx, func() (func(), error) {
		orig, ok := db.submission[s.ID]
		if !ok {
			return nil, core.NewNotFoundError(submission.Entity, s.ID)
		}
		prev := *orig
		saved := copySubmission(s)
		db.submission[s.ID] = &saved
		return func() { db.submission[prev.ID] = &prev }, nil
	})
	if err != nil {
		return submission.Submission{}, err
	}
	return s, nil
}
