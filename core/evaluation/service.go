package evaluation

import (
	"context"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/submission"
)

type (
	Repository interface {
		// GetMarks fails with a *core.NotFoundError when the evaluator has not scored the submission.
		GetMarks(ctx context.Context, submissionID, evaluatorID string) (Marks, error)
		// UpsertMarks creates or replaces the marks of the (submission, evaluator) pair.
		// Finalized marks are never replaced: it fails with a *core.ConflictError for them.
		UpsertMarks(ctx context.Context, m Marks) (Marks, error)
		// QueryMarks returns the marks of a submission in creation order.
		QueryMarks(ctx context.Context, submissionID string) ([]Marks, error)
		CountMarks(ctx context.Context, submissionID string) (total, final int, err error)
	}

	// Submissions gives access to the scored submissions.
	Submissions interface {
		GetSubmission(ctx context.Context, id string) (submission.Submission, error)
		GetSubmissionForUpdate(ctx context.Context, id string) (submission.Submission, error)
	}

	Service struct {
		repo        Repository
		submissions Submissions
		tx          core.Transactor
		checker     *core.Checker
		events      core.EventPublisher
	}
)

var _ submission.MarkCounter = (Repository)(nil)

func NewService(
	repo Repository,
	submissions Submissions,
	tx core.Transactor,
	checker *core.Checker,
	events core.EventPublisher,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(submissions, "submissions"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(checker, "checker"),
		vala.IsNotNil(events, "events"),
	).CheckAndPanic()
	return &Service{repo: repo, submissions: submissions, tx: tx, checker: checker, events: events}
}

// SubmitOrUpdate records an evaluator's marks for a submission under evaluation.
// Finalized marks cannot change.
func (svc *Service) SubmitOrUpdate(ctx context.Context, submissionID string, nm NewMarks, evaluator core.Actor) (Marks, error) {
	nm.Clean()
	if err := svc.checker.Struct(nm); err != nil {
		return Marks{}, err
	}
	nm.Score = core.Round2(nm.Score)
	if evaluator.IsZero() {
		return Marks{}, core.NewValidationError(nil, core.FieldError{Field: "evaluator_id", Error: "this field is required"})
	}

	var (
		marks     Marks
		projectID string
		created   bool
	)
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		// marks of a submission are serialized with its lifecycle transitions
		sub, err := svc.submissions.GetSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		projectID = sub.ProjectID
		if _, err := sub.Next(submission.ActionScore); err != nil {
			return err
		}

		now := core.NowFunc()
		marks, err = svc.repo.GetMarks(ctx, submissionID, evaluator.ID)
		switch {
		case err == nil:
			if marks.IsFinal {
				return core.NewConflictError(Entity, marks.ID, "finalized marks cannot be changed")
			}
		case core.IsNotFound(err):
			created = true
			marks = Marks{
				ID:           uuid.New().String(),
				SubmissionID: submissionID,
				EvaluatorID:  evaluator.ID,
				CreatedAt:    now,
			}
		default:
			return errors.Wrap(err, "getting marks")
		}

		marks.Score = nm.Score
		marks.Comments = nm.Comments
		marks.IsFinal = nm.Finalize
		marks.UpdatedAt = now

		marks, err = svc.repo.UpsertMarks(ctx, marks)
		return errors.Wrap(err, "saving marks")
	})
	if err != nil {
		return Marks{}, err
	}

	kind := core.EventMarksSubmitted
	if marks.IsFinal {
		kind = core.EventMarksFinalized
	}
	oldState := "draft"
	if created {
		oldState = ""
	}
	svc.events.Publish(core.Event{
		Kind:      kind,
		Entity:    Entity,
		EntityID:  marks.ID,
		ProjectID: projectID,
		OldState:  oldState,
		NewState:  marksState(marks),
		Actor:     evaluator,
		At:        marks.UpdatedAt,
		Data: map[string]interface{}{
			"submission_id": marks.SubmissionID,
			"score":         marks.Score,
		},
	})
	return marks, nil
}

// Summarize aggregates the marks of a submission.
func (svc *Service) Summarize(ctx context.Context, submissionID string) (Summary, error) {
	if _, err := svc.submissions.GetSubmission(ctx, submissionID); err != nil {
		return Summary{}, err
	}
	marks, err := svc.repo.QueryMarks(ctx, submissionID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying marks")
	}
	return Summarize(submissionID, marks), nil
}

func marksState(m Marks) string {
	if m.IsFinal {
		return "final"
	}
	return "draft"
}
