package evaluation

import (
	"time"

	"github.com/trezcool/fyp/core"
)

const Entity = "evaluation marks"

// Marks is the score given by one evaluator to one submission.
type Marks struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	EvaluatorID  string    `json:"evaluator_id"`
	Score        float64   `json:"score"` // %, 2 decimals
	Comments     string    `json:"comments"`
	IsFinal      bool      `json:"is_final"` // one-way
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewMarks contains an evaluator's score for a submission.
type NewMarks struct {
	Score    float64 `json:"score" validate:"pct"`
	Comments string  `json:"comments" validate:"max=5000"`
	Finalize bool    `json:"finalize"`
}

func (nm *NewMarks) Clean() {
	nm.Comments = core.CleanString(nm.Comments)
}

// Summary aggregates the marks of a submission.
// AverageScore covers every mark, AverageFinal only the finalized ones; both are 0 when there is nothing to average.
type Summary struct {
	SubmissionID   string  `json:"submission_id"`
	Marks          []Marks `json:"marks"`
	AverageScore   float64 `json:"average_score"`
	AverageFinal   float64 `json:"average_final"`
	EvaluatorCount int     `json:"evaluator_count"`
	FinalCount     int     `json:"final_count"`
	AllFinal       bool    `json:"all_final"` // false without marks
}

// Summarize computes the summary of a submission's marks.
func Summarize(submissionID string, marks []Marks) Summary {
	sum := Summary{SubmissionID: submissionID, Marks: marks, EvaluatorCount: len(marks)}
	if sum.Marks == nil {
		sum.Marks = []Marks{}
	}

	var total, totalFinal float64
	for _, m := range marks {
		total += m.Score
		if m.IsFinal {
			totalFinal += m.Score
			sum.FinalCount++
		}
	}
	if sum.EvaluatorCount > 0 {
		sum.AverageScore = core.Round2(total / float64(sum.EvaluatorCount))
	}
	if sum.FinalCount > 0 {
		sum.AverageFinal = core.Round2(totalFinal / float64(sum.FinalCount))
	}
	sum.AllFinal = sum.EvaluatorCount > 0 && sum.FinalCount == sum.EvaluatorCount
	return sum
}
