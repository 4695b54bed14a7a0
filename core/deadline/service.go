package deadline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/project"
)

const entity = "deadline batch"

type (
	Repository interface {
		CreateBatch(ctx context.Context, b Batch) (Batch, error)
		GetBatch(ctx context.Context, id string) (Batch, error)
		// QueryBatches returns batches with their deadlines.
		QueryBatches(ctx context.Context, activeOnly bool) ([]Batch, error)
		SetBatchActive(ctx context.Context, id string, active bool) (Batch, error)
	}

	Service struct {
		repo     Repository
		projects project.Repository
		registry doctype.Registry
		checker  *core.Checker
		events   core.EventPublisher
	}
)

func NewService(
	repo Repository,
	projects project.Repository,
	registry doctype.Registry,
	checker *core.Checker,
	events core.EventPublisher,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(projects, "projects"),
		vala.IsNotNil(registry, "registry"),
		vala.IsNotNil(checker, "checker"),
		vala.IsNotNil(events, "events"),
	).CheckAndPanic()
	InitValidators(checker.Validate(), checker.Translator())
	return &Service{repo: repo, projects: projects, registry: registry, checker: checker, events: events}
}

// Resolve returns the batch applicable at t, or nil when none is configured.
func (svc *Service) Resolve(ctx context.Context, t time.Time) (*Batch, error) {
	batches, err := svc.repo.QueryBatches(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying active batches")
	}
	return Resolve(batches, t.UTC()), nil
}

// ResolveForProject resolves the batch for a project's approval time.
// Projects that are not approved yet have no batch.
func (svc *Service) ResolveForProject(ctx context.Context, projectID string) (*Batch, error) {
	p, err := svc.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved() {
		return nil, nil
	}
	return svc.Resolve(ctx, *p.ApprovedAt)
}

// DeadlineFor returns the deadline of a document type for a project, if one is configured.
func (svc *Service) DeadlineFor(ctx context.Context, projectID, docTypeID string) (time.Time, bool, error) {
	b, err := svc.ResolveForProject(ctx, projectID)
	if err != nil || b == nil {
		return time.Time{}, false, err
	}
	d, ok := b.DeadlineFor(docTypeID)
	return d.DeadlineDate, ok, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Batch, error) {
	b, err := svc.repo.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, err
	}
	b.SortDeadlines()
	return b, nil
}

func (svc *Service) Query(ctx context.Context) ([]Batch, error) {
	return svc.repo.QueryBatches(ctx, false)
}

func (svc *Service) CreateBatch(ctx context.Context, nb NewBatch, by core.Actor) (Batch, error) {
	nb.Clean()
	if err := svc.checker.Struct(nb); err != nil {
		return Batch{}, err
	}

	b := Batch{
		ID:           uuid.New().String(),
		Name:         nb.Name,
		AppliesFrom:  nb.AppliesFrom,
		AppliesUntil: nb.AppliesUntil,
		IsActive:     true,
		CreatedAt:    core.NowFunc(),
		Deadlines:    make([]Deadline, 0, len(nb.Deadlines)),
	}
	for _, nd := range nb.Deadlines {
		if _, err := svc.registry.RequireActive(ctx, nd.DocumentTypeID); err != nil {
			return Batch{}, err
		}
		b.Deadlines = append(b.Deadlines, Deadline{
			DocumentTypeID: nd.DocumentTypeID,
			DeadlineDate:   nd.DeadlineDate,
			SortOrder:      nd.SortOrder,
		})
	}
	b.SortDeadlines()

	b, err := svc.repo.CreateBatch(ctx, b)
	if err != nil {
		return Batch{}, errors.Wrap(err, "creating deadline batch")
	}
	svc.publish(b, "", "active", by)
	return b, nil
}

func (svc *Service) Deactivate(ctx context.Context, id string, by core.Actor) (Batch, error) {
	b, err := svc.repo.SetBatchActive(ctx, id, false)
	if err != nil {
		return Batch{}, errors.Wrap(err, "deactivating deadline batch")
	}
	svc.publish(b, "active", "inactive", by)
	return b, nil
}

func (svc *Service) publish(b Batch, oldState, newState string, by core.Actor) {
	svc.events.Publish(core.Event{
		Kind:     core.EventDeadlineBatchChanged,
		Entity:   entity,
		EntityID: b.ID,
		OldState: oldState,
		NewState: newState,
		Actor:    by,
		At:       core.NowFunc(),
		Data:     map[string]interface{}{"name": b.Name},
	})
}
