package submission

import (
	"time"

	"github.com/trezcool/fyp/core"
)

const Entity = "submission"

// Submission is one uploaded version of a project document.
type Submission struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	DocumentTypeID string    `json:"document_type_id"`
	Version        int       `json:"version"` // 1-based, unique per (project, document type)
	Status         Status    `json:"status"`
	IsFinal        bool      `json:"is_final"` // one-way
	FileName       string    `json:"file_name"`
	UploadedBy     string    `json:"uploaded_by"`
	UploadedAt     time.Time `json:"uploaded_at"` // UTC
	IsLate         bool      `json:"is_late"`

	SupervisorReviewedBy string     `json:"supervisor_reviewed_by,omitempty"`
	SupervisorReviewedAt *time.Time `json:"supervisor_reviewed_at,omitempty"`
	SupervisorScore      *float64   `json:"supervisor_score,omitempty"` // %
	Comments             string     `json:"comments,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewUpload contains the metadata of an uploaded document.
type NewUpload struct {
	ProjectID      string `json:"project_id" validate:"required"`
	DocumentTypeID string `json:"document_type_id" validate:"required"`
	FileName       string `json:"file_name" validate:"required,notblank,max=255"`
}

func (nu *NewUpload) Clean() {
	nu.ProjectID = core.CleanString(nu.ProjectID)
	nu.DocumentTypeID = core.CleanString(nu.DocumentTypeID)
	nu.FileName = core.CleanString(nu.FileName)
}

// Approval is the supervisor's sign-off, optionally with a numeric score.
type Approval struct {
	Score    *float64 `json:"score" validate:"omitempty,pct"`
	Comments string   `json:"comments" validate:"max=5000"`
}

type RevisionRequest struct {
	Feedback string `json:"feedback" validate:"required,notblank,max=5000"`
}
