package doctype

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
)

const entity = "document type"

var cacheTTL = 1 * time.Minute

type (
	Repository interface {
		// CreateDocumentType fails with a *core.ConflictError when the code is taken.
		CreateDocumentType(ctx context.Context, dt DocumentType) (DocumentType, error)
		GetDocumentType(ctx context.Context, id string) (DocumentType, error)
		GetDocumentTypeByCode(ctx context.Context, code Code) (DocumentType, error)
		// QueryDocumentTypes returns types ordered by display order, then code.
		QueryDocumentTypes(ctx context.Context, activeOnly bool) ([]DocumentType, error)
		UpdateDocumentType(ctx context.Context, dt DocumentType) (DocumentType, error)
		Stamp(ctx context.Context) (Stamp, error)
	}

	// Registry is the read-only contract consumed by the rest of the engine.
	Registry interface {
		GetActive(ctx context.Context, code Code) (DocumentType, error)
		ListActive(ctx context.Context) ([]DocumentType, error)
		// RequireActive resolves a referenced type; unknown or inactive types are a *core.ValidationError.
		RequireActive(ctx context.Context, id string) (DocumentType, error)
	}

	Service struct {
		repo    Repository
		checker *core.Checker
		events  core.EventPublisher
		logger  core.Logger

		mu       sync.RWMutex
		active   []DocumentType
		stamp    Stamp
		cachedAt time.Time
	}
)

var _ Registry = (*Service)(nil)

func NewService(repo Repository, checker *core.Checker, events core.EventPublisher, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(checker, "checker"),
		vala.IsNotNil(events, "events"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	InitValidators(checker.Validate(), checker.Translator())
	return &Service{repo: repo, checker: checker, events: events, logger: logger}
}

// loadActive serves the active types from the cache while the table stamp is unchanged,
// so writes made by other processes are picked up on the next read.
func (svc *Service) loadActive(ctx context.Context) ([]DocumentType, error) {
	stamp, err := svc.repo.Stamp(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading document types stamp")
	}

	svc.mu.RLock()
	cached, cachedStamp, at := svc.active, svc.stamp, svc.cachedAt
	svc.mu.RUnlock()
	if cached != nil && stamp.Equal(cachedStamp) && time.Since(at) < cacheTTL {
		return cached, nil
	}

	dts, err := svc.repo.QueryDocumentTypes(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying active document types")
	}
	if dts == nil {
		dts = []DocumentType{}
	}
	svc.mu.Lock()
	svc.active, svc.stamp, svc.cachedAt = dts, stamp, time.Now()
	svc.mu.Unlock()
	return dts, nil
}

// invalidate drops the active types cache after a local write.
func (svc *Service) invalidate() {
	svc.mu.Lock()
	svc.active = nil
	svc.mu.Unlock()
}

func (svc *Service) GetActive(ctx context.Context, code Code) (DocumentType, error) {
	dts, err := svc.loadActive(ctx)
	if err != nil {
		return DocumentType{}, err
	}
	for _, dt := range dts {
		if dt.Code == code {
			return dt, nil
		}
	}
	return DocumentType{}, core.NewNotFoundError(entity, string(code))
}

// ListActive returns a copy of the active types, in display order.
func (svc *Service) ListActive(ctx context.Context) ([]DocumentType, error) {
	dts, err := svc.loadActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentType, len(dts))
	copy(out, dts)
	return out, nil
}

func (svc *Service) RequireActive(ctx context.Context, id string) (DocumentType, error) {
	dts, err := svc.loadActive(ctx)
	if err != nil {
		return DocumentType{}, err
	}
	for _, dt := range dts {
		if dt.ID == id {
			return dt, nil
		}
	}
	msg := "unknown or inactive document type"
	return DocumentType{}, core.NewValidationError(
		errors.New(msg),
		core.FieldError{Field: "document_type_id", Error: msg},
	)
}

func (svc *Service) GetByID(ctx context.Context, id string) (DocumentType, error) {
	return svc.repo.GetDocumentType(ctx, id)
}

// Query returns every document type, inactive ones included.
func (svc *Service) Query(ctx context.Context) ([]DocumentType, error) {
	return svc.repo.QueryDocumentTypes(ctx, false)
}

func (svc *Service) Create(ctx context.Context, ndt NewDocumentType, by core.Actor) (DocumentType, error) {
	ndt.Clean()
	if err := svc.checker.Struct(ndt); err != nil {
		return DocumentType{}, err
	}

	now := core.NowFunc()
	dt, err := svc.repo.CreateDocumentType(ctx, DocumentType{
		ID:               uuid.New().String(),
		Code:             Code(ndt.Code),
		Title:            ndt.Title,
		WeightSupervisor: ndt.WeightSupervisor,
		WeightCommittee:  ndt.WeightCommittee,
		DisplayOrder:     ndt.DisplayOrder,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		return DocumentType{}, errors.Wrap(err, "creating document type")
	}
	svc.invalidate()
	svc.publish(dt, "", "active", by)
	return dt, nil
}

func (svc *Service) Update(ctx context.Context, id string, udt UpdateDocumentType, by core.Actor) (DocumentType, error) {
	if err := svc.checker.Struct(udt); err != nil {
		return DocumentType{}, err
	}
	orig, err := svc.repo.GetDocumentType(ctx, id)
	if err != nil {
		return DocumentType{}, err
	}

	dt := udt.apply(orig)
	if err := checkWeights(dt); err != nil {
		return DocumentType{}, err
	}
	dt.UpdatedAt = core.NowFunc()

	if dt, err = svc.repo.UpdateDocumentType(ctx, dt); err != nil {
		return DocumentType{}, errors.Wrap(err, "updating document type")
	}
	svc.invalidate()
	svc.publish(dt, activeState(orig.IsActive), activeState(dt.IsActive), by)
	return dt, nil
}

// Deactivate soft-deletes a document type; types are never removed.
func (svc *Service) Deactivate(ctx context.Context, id string, by core.Actor) (DocumentType, error) {
	inactive := false
	return svc.Update(ctx, id, UpdateDocumentType{IsActive: &inactive}, by)
}

func (svc *Service) publish(dt DocumentType, oldState, newState string, by core.Actor) {
	svc.events.Publish(core.Event{
		Kind:     core.EventDocumentTypeChanged,
		Entity:   entity,
		EntityID: dt.ID,
		OldState: oldState,
		NewState: newState,
		Actor:    by,
		At:       dt.UpdatedAt,
		Data: map[string]interface{}{
			"code":              dt.Code,
			"weight_supervisor": dt.WeightSupervisor,
			"weight_committee":  dt.WeightCommittee,
		},
	})
}

func activeState(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
