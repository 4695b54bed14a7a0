package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
)

type (
	// Repository persists submissions. Calls made with a transactional context
	// take part in that transaction.
	Repository interface {
		// NextVersion increments the (project, document type) counter and returns the new value.
		// The pair stays locked until the transaction ends and the increment rolls back with it.
		NextVersion(ctx context.Context, projectID, docTypeID string) (int, error)
		// LockPair takes the lock NextVersion holds on the pair, until the transaction ends.
		LockPair(ctx context.Context, projectID, docTypeID string) error
		// CreateSubmission fails with a *core.ConflictError when the version is taken.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// GetSubmissionForUpdate locks the submission until the transaction ends.
		GetSubmissionForUpdate(ctx context.Context, id string) (Submission, error)
		// LatestSubmission fails with a *core.NotFoundError when nothing was uploaded for the pair.
		LatestSubmission(ctx context.Context, projectID, docTypeID string) (Submission, error)
		// QuerySubmissions returns every version of the pair, oldest first.
		QuerySubmissions(ctx context.Context, projectID, docTypeID string) ([]Submission, error)
		HasFinalVersion(ctx context.Context, projectID, docTypeID string) (bool, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	}

	// Deadlines resolves the due date of a document for a project.
	Deadlines interface {
		DeadlineFor(ctx context.Context, projectID, docTypeID string) (time.Time, bool, error)
	}

	// MarkCounter reports how many evaluators scored a submission, and how many of them are final.
	MarkCounter interface {
		CountMarks(ctx context.Context, submissionID string) (total, final int, err error)
	}

	Service struct {
		repo      Repository
		tx        core.Transactor
		registry  doctype.Registry
		deadlines Deadlines
		marks     MarkCounter
		checker   *core.Checker
		events    core.EventPublisher
		conf      core.ScoringConfig
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	registry doctype.Registry,
	deadlines Deadlines,
	marks MarkCounter,
	checker *core.Checker,
	events core.EventPublisher,
	conf core.ScoringConfig,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(registry, "registry"),
		vala.IsNotNil(deadlines, "deadlines"),
		vala.IsNotNil(marks, "marks"),
		vala.IsNotNil(checker, "checker"),
		vala.IsNotNil(events, "events"),
	).CheckAndPanic()

	return &Service{
		repo:      repo,
		tx:        tx,
		registry:  registry,
		deadlines: deadlines,
		marks:     marks,
		checker:   checker,
		events:    events,
		conf:      conf,
	}
}

func (svc *Service) Get(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) Latest(ctx context.Context, projectID, docTypeID string) (Submission, error) {
	return svc.repo.LatestSubmission(ctx, projectID, docTypeID)
}

// History returns every version uploaded for the pair, oldest first.
func (svc *Service) History(ctx context.Context, projectID, docTypeID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, projectID, docTypeID)
}

// Upload records a new version of a document, pending supervisor review.
func (svc *Service) Upload(ctx context.Context, nu NewUpload, uploader core.Actor) (Submission, error) {
	nu.Clean()
	if err := svc.checker.Struct(nu); err != nil {
		return Submission{}, err
	}
	if _, err := svc.registry.RequireActive(ctx, nu.DocumentTypeID); err != nil {
		return Submission{}, err
	}
	due, hasDeadline, err := svc.deadlines.DeadlineFor(ctx, nu.ProjectID, nu.DocumentTypeID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "resolving deadline")
	}

	var sub Submission
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// taking the next version first serializes uploads of the pair for the rest of the tx
		version, err := svc.repo.NextVersion(ctx, nu.ProjectID, nu.DocumentTypeID)
		if err != nil {
			return errors.Wrap(err, "assigning version")
		}

		latest, err := svc.repo.LatestSubmission(ctx, nu.ProjectID, nu.DocumentTypeID)
		switch {
		case err == nil:
			if _, err := latest.Next(ActionSupersede); err != nil {
				return err
			}
		case !core.IsNotFound(err):
			return errors.Wrap(err, "getting latest submission")
		}

		hasFinal, err := svc.repo.HasFinalVersion(ctx, nu.ProjectID, nu.DocumentTypeID)
		if err != nil {
			return errors.Wrap(err, "checking final versions")
		}
		if hasFinal {
			return core.NewConflictError(Entity, "", "a final version was already submitted for this document")
		}

		now := core.NowFunc()
		sub, err = svc.repo.CreateSubmission(ctx, Submission{
			ID:             uuid.New().String(),
			ProjectID:      nu.ProjectID,
			DocumentTypeID: nu.DocumentTypeID,
			Version:        version,
			Status:         StatusPendingSupervisor,
			FileName:       nu.FileName,
			UploadedBy:     uploader.ID,
			UploadedAt:     now,
			IsLate:         hasDeadline && now.After(due),
			UpdatedAt:      now,
		})
		return err
	})
	if err != nil {
		return Submission{}, err
	}

	svc.publish(core.EventSubmissionUploaded, sub, "", uploader, map[string]interface{}{
		"version":   sub.Version,
		"file_name": sub.FileName,
		"is_late":   sub.IsLate,
	})
	return sub, nil
}

// MarkFinal flags the submission as the final version of its document. The status is left unchanged.
func (svc *Service) MarkFinal(ctx context.Context, id string, by core.Actor) (Submission, error) {
	return svc.transition(ctx, id, ActionMarkFinal, by, core.EventSubmissionMarkedFinal, func(ctx context.Context, sub *Submission) error {
		if sub.IsFinal {
			return core.NewConflictError(Entity, sub.ID, "already marked final")
		}
		latest, err := svc.repo.LatestSubmission(ctx, sub.ProjectID, sub.DocumentTypeID)
		if err != nil {
			return errors.Wrap(err, "getting latest submission")
		}
		if latest.ID != sub.ID {
			return core.NewConflictError(Entity, sub.ID, fmt.Sprintf("superseded by version %d", latest.Version))
		}
		sub.IsFinal = true
		return nil
	})
}

// Approve records the supervisor sign-off. The score is optional.
func (svc *Service) Approve(ctx context.Context, id string, appr Approval, reviewer core.Actor) (Submission, error) {
	if err := svc.checker.Struct(appr); err != nil {
		return Submission{}, err
	}
	return svc.transition(ctx, id, ActionApprove, reviewer, core.EventSubmissionApproved, func(_ context.Context, sub *Submission) error {
		svc.stampReview(sub, reviewer)
		if appr.Score != nil {
			score := core.Round2(*appr.Score)
			sub.SupervisorScore = &score
		}
		if c := core.CleanString(appr.Comments); c != "" {
			sub.Comments = c
		}
		return nil
	})
}

func (svc *Service) RequestRevision(ctx context.Context, id string, rr RevisionRequest, reviewer core.Actor) (Submission, error) {
	rr.Feedback = core.CleanString(rr.Feedback)
	if err := svc.checker.Struct(rr); err != nil {
		return Submission{}, err
	}
	return svc.transition(ctx, id, ActionRequestRevision, reviewer, core.EventRevisionRequested, func(_ context.Context, sub *Submission) error {
		svc.stampReview(sub, reviewer)
		sub.Comments = rr.Feedback
		sub.SupervisorScore = nil
		return nil
	})
}

func (svc *Service) LockForEvaluation(ctx context.Context, id string, by core.Actor) (Submission, error) {
	return svc.transition(ctx, id, ActionLockForEvaluation, by, core.EventSubmissionLocked, nil)
}

func (svc *Service) StartEvaluation(ctx context.Context, id string, by core.Actor) (Submission, error) {
	return svc.transition(ctx, id, ActionStartEvaluation, by, core.EventEvaluationStarted, nil)
}

// FinalizeEvaluation closes the evaluation of a submission.
// With Scoring.RequireAllMarksFinal, every evaluator must have finalized their marks first.
func (svc *Service) FinalizeEvaluation(ctx context.Context, id string, by core.Actor) (Submission, error) {
	return svc.transition(ctx, id, ActionFinalizeEvaluation, by, core.EventEvaluationFinalized, func(ctx context.Context, sub *Submission) error {
		if !svc.conf.RequireAllMarksFinal {
			return nil
		}
		total, final, err := svc.marks.CountMarks(ctx, sub.ID)
		if err != nil {
			return errors.Wrap(err, "counting marks")
		}
		if total == 0 {
			return core.NewBusinessRuleError("evaluation has no marks", sub.ID)
		}
		if final < total {
			return core.NewBusinessRuleError("evaluation has draft marks", sub.ID)
		}
		return nil
	})
}

func (svc *Service) stampReview(sub *Submission, reviewer core.Actor) {
	now := core.NowFunc()
	sub.SupervisorReviewedBy = reviewer.ID
	sub.SupervisorReviewedAt = &now
}

// transition applies an action to a locked submission within a transaction, and publishes
// the event once committed. mutate may amend the submission or veto the action.
// The pair is locked before the submission row, in the order Upload takes its locks.
func (svc *Service) transition(
	ctx context.Context,
	id string,
	action Action,
	by core.Actor,
	kind core.EventKind,
	mutate func(ctx context.Context, sub *Submission) error,
) (Submission, error) {
	var (
		sub  Submission
		from Status
	)
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := svc.repo.GetSubmission(ctx, id)
		if err != nil {
			return err
		}
		if err := svc.repo.LockPair(ctx, cur.ProjectID, cur.DocumentTypeID); err != nil {
			return errors.Wrap(err, "locking submission pair")
		}
		if sub, err = svc.repo.GetSubmissionForUpdate(ctx, id); err != nil {
			return err
		}
		from = sub.Status

		to, err := sub.Next(action)
		if err != nil {
			return err
		}
		if mutate != nil {
			if err := mutate(ctx, &sub); err != nil {
				return err
			}
		}
		sub.Status = to
		sub.UpdatedAt = core.NowFunc()

		sub, err = svc.repo.UpdateSubmission(ctx, sub)
		return errors.Wrapf(err, "updating submission (%s)", action)
	})
	if err != nil {
		return Submission{}, err
	}

	svc.publish(kind, sub, from, by, nil)
	return sub, nil
}

func (svc *Service) publish(kind core.EventKind, sub Submission, from Status, by core.Actor, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["document_type_id"] = sub.DocumentTypeID
	data["version"] = sub.Version

	svc.events.Publish(core.Event{
		Kind:      kind,
		Entity:    Entity,
		EntityID:  sub.ID,
		ProjectID: sub.ProjectID,
		OldState:  string(from),
		NewState:  string(sub.Status),
		Actor:     by,
		At:        sub.UpdatedAt,
		Data:      data,
	})
}
