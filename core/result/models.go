package result

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core/doctype"
)

const (
	Entity = "final result"

	// BreakdownSchemaVersion is bumped on every incompatible change of Breakdown.
	BreakdownSchemaVersion = 1
)

// FinalResult is the releasable overall score of a project.
type FinalResult struct {
	ProjectID  string     `json:"project_id"`
	TotalScore float64    `json:"total_score"`
	Details    Breakdown  `json:"details"`
	Released   bool       `json:"released"` // one-way
	ReleasedBy string     `json:"released_by,omitempty"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Breakdown details how the total score of a project was obtained.
type Breakdown struct {
	SchemaVersion int             `json:"schema_version"`
	Items         []BreakdownItem `json:"items"`       // in display order of the document types
	TotalScore    float64         `json:"total_score"` // sum of the weighted scores
	MaxScore      float64         `json:"max_score"`   // 100 per item
	ComputedAt    time.Time       `json:"computed_at"`
}

// BreakdownItem is the contribution of one document type.
type BreakdownItem struct {
	DocTypeCode       doctype.Code `json:"doc_type_code"`
	SubmissionID      string       `json:"submission_id"`
	Version           int          `json:"version"`
	SupervisorScore   float64      `json:"supervisor_score"`
	SupervisorWeight  int          `json:"supervisor_weight"`
	CommitteeAvgScore float64      `json:"committee_avg_score"`
	CommitteeWeight   int          `json:"committee_weight"`
	WeightedScore     float64      `json:"weighted_score"`
}

// SameScores reports whether both breakdowns hold the same items and total, regardless of when they were computed.
func (b Breakdown) SameScores(o Breakdown) bool {
	if b.SchemaVersion != o.SchemaVersion || b.TotalScore != o.TotalScore || b.MaxScore != o.MaxScore || len(b.Items) != len(o.Items) {
		return false
	}
	for i := range b.Items {
		if b.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// Value stores the breakdown as JSON.
func (b Breakdown) Value() (driver.Value, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Wrap(err, "encoding breakdown")
	}
	return string(data), nil
}

// Scan reads a breakdown stored as JSON.
func (b *Breakdown) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*b = Breakdown{}
		return nil
	default:
		return errors.Errorf("result: cannot scan %T into Breakdown", src)
	}
	return errors.Wrap(json.Unmarshal(data, b), "decoding breakdown")
}
