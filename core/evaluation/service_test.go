package evaluation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/submission"
	"github.com/trezcool/fyp/tests"
)

func setup(t *testing.T) (*testutil.Env, submission.Submission) {
	env := testutil.NewEnv(t)
	dt := env.CreateDocType(t, doctype.CodeSDS, 40, 60, 1)
	env.CreateProject(t, "p1", testutil.TimePtr(time.Now().UTC()))
	sub := env.Upload(t, "p1", dt.ID)
	return env, sub
}

func TestService_SubmitOrUpdate(t *testing.T) {
	env, sub := setup(t)
	ctx := context.Background()
	eval1 := testutil.Evaluator(1)

	// not under evaluation yet
	_, err := env.Evaluations.SubmitOrUpdate(ctx, sub.ID, evaluation.NewMarks{Score: 80}, eval1)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)

	env.Approve(t, sub.ID, nil)
	_, err = env.Submissions.LockForEvaluation(ctx, sub.ID, testutil.Coordinator)
	require.NoError(t, err)

	tests := []struct {
		name      string
		nm        evaluation.NewMarks
		evaluator core.Actor
		wantErr   func(error) bool
		want      float64
	}{
		{name: "score above range", nm: evaluation.NewMarks{Score: 100.5}, evaluator: eval1, wantErr: core.IsValidation},
		{name: "negative score", nm: evaluation.NewMarks{Score: -1}, evaluator: eval1, wantErr: core.IsValidation},
		{name: "just above range", nm: evaluation.NewMarks{Score: 100.004}, evaluator: eval1, wantErr: core.IsValidation},
		{name: "just below range", nm: evaluation.NewMarks{Score: -0.004}, evaluator: eval1, wantErr: core.IsValidation},
		{name: "no evaluator", nm: evaluation.NewMarks{Score: 50}, wantErr: core.IsValidation},
		{name: "draft", nm: evaluation.NewMarks{Score: 72.345, Comments: "ok"}, evaluator: eval1, want: 72.35},
		{name: "draft update", nm: evaluation.NewMarks{Score: 75}, evaluator: eval1, want: 75},
		{name: "finalize", nm: evaluation.NewMarks{Score: 78, Finalize: true}, evaluator: eval1, want: 78},
		{name: "finalized marks are frozen", nm: evaluation.NewMarks{Score: 90}, evaluator: eval1, wantErr: core.IsConflict},
		{name: "other evaluator", nm: evaluation.NewMarks{Score: 100, Finalize: true}, evaluator: testutil.Evaluator(2), want: 100},
		{name: "lower bound", nm: evaluation.NewMarks{Score: 0, Finalize: true}, evaluator: testutil.Evaluator(3), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := env.Evaluations.SubmitOrUpdate(ctx, sub.ID, tt.nm, tt.evaluator)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Score)
			assert.Equal(t, tt.nm.Finalize, m.IsFinal)
		})
	}

	// one row per (submission, evaluator)
	sum, err := env.Evaluations.Summarize(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, sum.Marks, 3)
	assert.Equal(t, eval1.ID, sum.Marks[0].EvaluatorID)
	assert.Equal(t, 78.0, sum.Marks[0].Score)

	// scoring ends with the evaluation
	_, err = env.Submissions.StartEvaluation(ctx, sub.ID, testutil.Coordinator)
	require.NoError(t, err)
	_, err = env.Submissions.FinalizeEvaluation(ctx, sub.ID, testutil.Coordinator)
	require.NoError(t, err)
	_, err = env.Evaluations.SubmitOrUpdate(ctx, sub.ID, evaluation.NewMarks{Score: 10}, testutil.Evaluator(4))
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)

	_, err = env.Evaluations.SubmitOrUpdate(ctx, "nope", evaluation.NewMarks{Score: 10}, eval1)
	assert.True(t, core.IsNotFound(err))
}

func TestService_SubmitOrUpdate_events(t *testing.T) {
	env, sub := setup(t)
	env.Approve(t, sub.ID, nil)
	env.StartEvaluation(t, sub.ID)
	env.Events.Reset()

	env.Score(t, sub.ID, testutil.Evaluator(1), 60, false)
	env.Score(t, sub.ID, testutil.Evaluator(1), 65, true)

	evts := env.Events.Events()
	require.Len(t, evts, 2)
	assert.Equal(t, core.EventMarksSubmitted, evts[0].Kind)
	assert.Equal(t, "", evts[0].OldState)
	assert.Equal(t, "draft", evts[0].NewState)
	assert.Equal(t, core.EventMarksFinalized, evts[1].Kind)
	assert.Equal(t, "draft", evts[1].OldState)
	assert.Equal(t, "final", evts[1].NewState)
	assert.Equal(t, "p1", evts[1].ProjectID)
}

func TestService_SubmitOrUpdate_concurrentFinalize(t *testing.T) {
	env, sub := setup(t)
	env.Approve(t, sub.ID, nil)
	env.StartEvaluation(t, sub.ID)
	eval1 := testutil.Evaluator(1)

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(score float64) {
			defer wg.Done()
			_, err := env.Evaluations.SubmitOrUpdate(context.Background(), sub.ID, evaluation.NewMarks{Score: score, Finalize: true}, eval1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if core.IsConflict(err) {
				conflict++
			}
		}(float64(50 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		marks []evaluation.Marks
		want  evaluation.Summary
	}{
		{
			name: "no marks",
			want: evaluation.Summary{SubmissionID: "s", Marks: []evaluation.Marks{}},
		},
		{
			name: "all final",
			marks: []evaluation.Marks{
				{Score: 80, IsFinal: true},
				{Score: 85, IsFinal: true},
				{Score: 90, IsFinal: true},
			},
			want: evaluation.Summary{AverageScore: 85, AverageFinal: 85, EvaluatorCount: 3, FinalCount: 3, AllFinal: true},
		},
		{
			name: "drafts are left out of the final average",
			marks: []evaluation.Marks{
				{Score: 70, IsFinal: true},
				{Score: 100},
			},
			want: evaluation.Summary{AverageScore: 85, AverageFinal: 70, EvaluatorCount: 2, FinalCount: 1},
		},
		{
			name: "rounded to 2 decimals",
			marks: []evaluation.Marks{
				{Score: 70, IsFinal: true},
				{Score: 70, IsFinal: true},
				{Score: 71, IsFinal: true},
			},
			want: evaluation.Summary{AverageScore: 70.33, AverageFinal: 70.33, EvaluatorCount: 3, FinalCount: 3, AllFinal: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluation.Summarize("s", tt.marks)
			assert.Equal(t, tt.want.AverageScore, got.AverageScore)
			assert.Equal(t, tt.want.AverageFinal, got.AverageFinal)
			assert.Equal(t, tt.want.EvaluatorCount, got.EvaluatorCount)
			assert.Equal(t, tt.want.FinalCount, got.FinalCount)
			assert.Equal(t, tt.want.AllFinal, got.AllFinal)
			assert.NotNil(t, got.Marks)
		})
	}
}
