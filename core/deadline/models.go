package deadline

import (
	"sort"
	"time"

	"github.com/trezcool/fyp/core"
)

// Deadline is the due date of one document type within a Batch.
type Deadline struct {
	DocumentTypeID string    `json:"document_type_id"`
	DeadlineDate   time.Time `json:"deadline_date"` // UTC
	SortOrder      int       `json:"sort_order"`
}

// Batch is a date-ranged set of deadlines applied to projects approved within [AppliesFrom, AppliesUntil).
type Batch struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	AppliesFrom  time.Time  `json:"applies_from"`  // inclusive
	AppliesUntil *time.Time `json:"applies_until"` // exclusive; nil = open-ended
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	Deadlines    []Deadline `json:"deadlines"`
}

// Covers reports whether the batch applies to a project approved at t.
func (b Batch) Covers(t time.Time) bool {
	if !b.IsActive || t.Before(b.AppliesFrom) {
		return false
	}
	return b.AppliesUntil == nil || t.Before(*b.AppliesUntil)
}

func (b *Batch) SortDeadlines() {
	sort.SliceStable(b.Deadlines, func(i, j int) bool { return b.Deadlines[i].SortOrder < b.Deadlines[j].SortOrder })
}

// DeadlineFor returns the deadline of a document type, if the batch sets one.
func (b Batch) DeadlineFor(docTypeID string) (Deadline, bool) {
	for _, d := range b.Deadlines {
		if d.DocumentTypeID == docTypeID {
			return d, true
		}
	}
	return Deadline{}, false
}

// NewBatch contains information needed to create a new Batch.
type NewBatch struct {
	Name         string        `json:"name" validate:"required,notblank"`
	AppliesFrom  time.Time     `json:"applies_from" validate:"required"`
	AppliesUntil *time.Time    `json:"applies_until"`
	Deadlines    []NewDeadline `json:"deadlines" validate:"dive"`
}

type NewDeadline struct {
	DocumentTypeID string    `json:"document_type_id" validate:"required"`
	DeadlineDate   time.Time `json:"deadline_date" validate:"required"`
	SortOrder      int       `json:"sort_order" validate:"min=0"`
}

func (nb *NewBatch) Clean() {
	nb.Name = core.CleanString(nb.Name)
	nb.AppliesFrom = nb.AppliesFrom.UTC()
	if nb.AppliesUntil != nil {
		until := nb.AppliesUntil.UTC()
		nb.AppliesUntil = &until
	}
	for i := range nb.Deadlines {
		nb.Deadlines[i].DocumentTypeID = core.CleanString(nb.Deadlines[i].DocumentTypeID)
		nb.Deadlines[i].DeadlineDate = nb.Deadlines[i].DeadlineDate.UTC()
	}
}
