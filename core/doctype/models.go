package doctype

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
)

// Code identifies a document type. The set of codes is closed.
type Code string

// Codes
const (
	CodeProposal          Code = "PROPOSAL"
	CodeSRS               Code = "SRS"
	CodeSDS               Code = "SDS"
	CodeProgressReport    Code = "PROGRESS_REPORT"
	CodeThesis            Code = "THESIS"
	CodeFinalPresentation Code = "FINAL_PRESENTATION"
)

// Stamp summarizes the document types table. Creating or updating a type changes it.
type Stamp struct {
	Count     int
	UpdatedAt time.Time
}

func (s Stamp) Equal(other Stamp) bool {
	return s.Count == other.Count && s.UpdatedAt.Equal(other.UpdatedAt)
}

var AllCodes = []Code{CodeProposal, CodeSRS, CodeSDS, CodeProgressReport, CodeThesis, CodeFinalPresentation}

var errUnknownCode = errors.New("unknown document type code")

func (c Code) Valid() bool {
	for _, code := range AllCodes {
		if c == code {
			return true
		}
	}
	return false
}

// ParseCode cleans and checks a code received at the boundary.
func ParseCode(s string) (Code, error) {
	c := Code(core.CleanString(s))
	if !c.Valid() {
		return "", core.NewValidationError(errUnknownCode, core.FieldError{Field: "code", Error: errUnknownCode.Error()})
	}
	return c, nil
}

type DocumentType struct {
	ID               string    `json:"id"`
	Code             Code      `json:"code"`
	Title            string    `json:"title"`
	WeightSupervisor int       `json:"weight_supervisor"` // %
	WeightCommittee  int       `json:"weight_committee"`  // %
	DisplayOrder     int       `json:"display_order"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

// WeightsValid reports whether the supervisor/committee split covers exactly 100%.
func (dt DocumentType) WeightsValid() bool {
	return dt.WeightSupervisor >= 0 && dt.WeightCommittee >= 0 && dt.WeightSupervisor+dt.WeightCommittee == 100
}

// SortByDisplayOrder orders document types by DisplayOrder, then Code.
func SortByDisplayOrder(dts []DocumentType) {
	sort.SliceStable(dts, func(i, j int) bool {
		if dts[i].DisplayOrder != dts[j].DisplayOrder {
			return dts[i].DisplayOrder < dts[j].DisplayOrder
		}
		return dts[i].Code < dts[j].Code
	})
}

// NewDocumentType contains information needed to create a new DocumentType.
type NewDocumentType struct {
	Code             string `json:"code" validate:"required,doccode"`
	Title            string `json:"title" validate:"required,notblank"`
	WeightSupervisor int    `json:"weight_supervisor" validate:"pct"`
	WeightCommittee  int    `json:"weight_committee" validate:"pct"`
	DisplayOrder     int    `json:"display_order" validate:"min=0"`
}

func (ndt *NewDocumentType) Clean() {
	ndt.Code = core.CleanString(ndt.Code)
	ndt.Title = core.CleanString(ndt.Title)
}

// UpdateDocumentType defines what information may be provided to modify an existing DocumentType.
// The code is immutable.
type UpdateDocumentType struct {
	Title            *string `json:"title" validate:"omitempty,notblank"`
	WeightSupervisor *int    `json:"weight_supervisor" validate:"omitempty,pct"`
	WeightCommittee  *int    `json:"weight_committee" validate:"omitempty,pct"`
	DisplayOrder     *int    `json:"display_order" validate:"omitempty,min=0"`
	IsActive         *bool   `json:"is_active"`
}

// apply returns orig with the set fields of udt.
func (udt UpdateDocumentType) apply(orig DocumentType) DocumentType {
	dt := orig
	if udt.Title != nil {
		dt.Title = core.CleanString(*udt.Title)
	}
	if udt.WeightSupervisor != nil {
		dt.WeightSupervisor = *udt.WeightSupervisor
	}
	if udt.WeightCommittee != nil {
		dt.WeightCommittee = *udt.WeightCommittee
	}
	if udt.DisplayOrder != nil {
		dt.DisplayOrder = *udt.DisplayOrder
	}
	if udt.IsActive != nil {
		dt.IsActive = *udt.IsActive
	}
	return dt
}
