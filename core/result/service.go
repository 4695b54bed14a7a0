package result

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/submission"
)

type (
	Repository interface {
		// GetResult fails with a *core.NotFoundError when the project has no computed result.
		GetResult(ctx context.Context, projectID string) (FinalResult, error)
		// GetResultForUpdate locks the result until the transaction ends.
		GetResultForUpdate(ctx context.Context, projectID string) (FinalResult, error)
		// SaveResult creates or overwrites the result of a project.
		SaveResult(ctx context.Context, r FinalResult) (FinalResult, error)
	}

	Submissions interface {
		LatestSubmission(ctx context.Context, projectID, docTypeID string) (submission.Submission, error)
	}

	Summarizer interface {
		Summarize(ctx context.Context, submissionID string) (evaluation.Summary, error)
	}

	Service struct {
		repo        Repository
		tx          core.Transactor
		projects    project.Repository
		registry    doctype.Registry
		submissions Submissions
		marks       Summarizer
		events      core.EventPublisher
		logger      core.Logger
		conf        core.ScoringConfig
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	projects project.Repository,
	registry doctype.Registry,
	submissions Submissions,
	marks Summarizer,
	events core.EventPublisher,
	logger core.Logger,
	conf core.ScoringConfig,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(projects, "projects"),
		vala.IsNotNil(registry, "registry"),
		vala.IsNotNil(submissions, "submissions"),
		vala.IsNotNil(marks, "marks"),
		vala.IsNotNil(events, "events"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		repo:        repo,
		tx:          tx,
		projects:    projects,
		registry:    registry,
		submissions: submissions,
		marks:       marks,
		events:      events,
		logger:      logger,
		conf:        conf,
	}
}

func (svc *Service) Get(ctx context.Context, projectID string) (FinalResult, error) {
	return svc.repo.GetResult(ctx, projectID)
}

// Compute compiles the weighted score of a project from the latest submission of every active document type,
// and stores it in place of any unreleased result.
func (svc *Service) Compute(ctx context.Context, projectID string, by core.Actor) (FinalResult, error) {
	if _, err := svc.projects.GetProject(ctx, projectID); err != nil {
		return FinalResult{}, err
	}
	bd, err := svc.compile(ctx, projectID)
	if err != nil {
		return FinalResult{}, err
	}

	var (
		res     FinalResult
		changed = true
	)
	err = svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		prev, err := svc.repo.GetResultForUpdate(ctx, projectID)
		switch {
		case err == nil:
			if prev.Released {
				return core.NewConflictError(Entity, projectID, "a released result cannot be recomputed")
			}
			if prev.Details.SameScores(bd) {
				res, changed = prev, false
				return nil
			}
			svc.logger.Info("final result changed on recompute", map[string]interface{}{
				"project_id": projectID,
				"diff":       breakdownDiff(prev.Details, bd),
			})
		case !core.IsNotFound(err):
			return errors.Wrap(err, "getting final result")
		}

		res, err = svc.repo.SaveResult(ctx, FinalResult{
			ProjectID:  projectID,
			TotalScore: bd.TotalScore,
			Details:    bd,
			ComputedAt: bd.ComputedAt,
		})
		return errors.Wrap(err, "saving final result")
	})
	if err != nil {
		return FinalResult{}, err
	}

	svc.events.Publish(core.Event{
		Kind:      core.EventResultComputed,
		Entity:    Entity,
		EntityID:  projectID,
		ProjectID: projectID,
		NewState:  "computed",
		Actor:     by,
		At:        core.NowFunc(),
		Data: map[string]interface{}{
			"total_score": res.TotalScore,
			"changed":     changed,
		},
	})
	return res, nil
}

func (svc *Service) compile(ctx context.Context, projectID string) (Breakdown, error) {
	dts, err := svc.registry.ListActive(ctx)
	if err != nil {
		return Breakdown{}, errors.Wrap(err, "listing document types")
	}
	if len(dts) == 0 {
		return Breakdown{}, core.NewBusinessRuleError("no active document types", "")
	}

	latest := make([]submission.Submission, len(dts))
	var missing []string
	for i, dt := range dts {
		sub, err := svc.submissions.LatestSubmission(ctx, projectID, dt.ID)
		switch {
		case core.IsNotFound(err):
			missing = append(missing, string(dt.Code))
			continue
		case err != nil:
			return Breakdown{}, errors.Wrapf(err, "getting latest %s submission", dt.Code)
		}
		latest[i] = sub
	}
	if len(missing) > 0 {
		return Breakdown{}, core.NewBusinessRuleError("missing document submissions", strings.Join(missing, ", "))
	}

	bd := Breakdown{SchemaVersion: BreakdownSchemaVersion, Items: make([]BreakdownItem, 0, len(dts))}
	var total float64
	for i, dt := range dts {
		sub := latest[i]
		if !sub.Status.PassedSupervisor() {
			return Breakdown{}, core.NewBusinessRuleError("submission not approved by supervisor", string(dt.Code))
		}
		supScore := svc.conf.SupervisorApprovalScore
		if sub.SupervisorScore != nil {
			supScore = *sub.SupervisorScore
		}

		sum, err := svc.marks.Summarize(ctx, sub.ID)
		if err != nil {
			return Breakdown{}, errors.Wrapf(err, "summarizing %s marks", dt.Code)
		}
		if sum.FinalCount == 0 {
			return Breakdown{}, core.NewBusinessRuleError("no finalized evaluation marks", string(dt.Code))
		}

		item := BreakdownItem{
			DocTypeCode:       dt.Code,
			SubmissionID:      sub.ID,
			Version:           sub.Version,
			SupervisorScore:   supScore,
			SupervisorWeight:  dt.WeightSupervisor,
			CommitteeAvgScore: sum.AverageFinal,
			CommitteeWeight:   dt.WeightCommittee,
		}
		item.WeightedScore = core.Round2(
			item.SupervisorScore*float64(item.SupervisorWeight)/100 +
				item.CommitteeAvgScore*float64(item.CommitteeWeight)/100,
		)
		total += item.WeightedScore
		bd.Items = append(bd.Items, item)
	}
	bd.TotalScore = core.Round2(total)
	bd.MaxScore = float64(100 * len(bd.Items))
	bd.ComputedAt = core.NowFunc()
	return bd, nil
}

// Release publishes the result to the students. It cannot be undone.
func (svc *Service) Release(ctx context.Context, projectID string, by core.Actor) (FinalResult, error) {
	if by.IsZero() {
		return FinalResult{}, core.NewValidationError(nil, core.FieldError{Field: "released_by", Error: "this field is required"})
	}

	var res FinalResult
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if res, err = svc.repo.GetResultForUpdate(ctx, projectID); err != nil {
			return err
		}
		if res.Released {
			return core.NewConflictError(Entity, projectID, "already released")
		}
		now := core.NowFunc()
		res.Released = true
		res.ReleasedBy = by.ID
		res.ReleasedAt = &now

		res, err = svc.repo.SaveResult(ctx, res)
		return errors.Wrap(err, "releasing final result")
	})
	if err != nil {
		return FinalResult{}, err
	}

	svc.events.Publish(core.Event{
		Kind:      core.EventResultReleased,
		Entity:    Entity,
		EntityID:  projectID,
		ProjectID: projectID,
		OldState:  "computed",
		NewState:  "released",
		Actor:     by,
		At:        *res.ReleasedAt,
		Data:      map[string]interface{}{"total_score": res.TotalScore},
	})
	return res, nil
}

// breakdownDiff renders the score changes between two breakdowns as a unified diff.
func breakdownDiff(prev, curr Breakdown) string {
	prev.ComputedAt, curr.ComputedAt = time.Time{}, time.Time{}
	a, _ := json.MarshalIndent(prev, "", "  ")
	b, _ := json.MarshalIndent(curr, "", "  ")
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "previous",
		ToFile:   "current",
		Context:  1,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}
