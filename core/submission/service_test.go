package submission_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/submission"
	"github.com/trezcool/fyp/tests"
)

func setup(t *testing.T, conf ...*core.Config) (*testutil.Env, doctype.DocumentType) {
	env := testutil.NewEnv(t, conf...)
	dt := env.CreateDocType(t, doctype.CodeSRS, 40, 60, 1)
	env.CreateProject(t, "p1", testutil.TimePtr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	return env, dt
}

func upload(env *testutil.Env, projectID, docTypeID string) (submission.Submission, error) {
	return env.Submissions.Upload(context.Background(), submission.NewUpload{
		ProjectID:      projectID,
		DocumentTypeID: docTypeID,
		FileName:       "srs.pdf",
	}, testutil.Student)
}

func TestService_Upload(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		projectID string
		docTypeID string
		fileName  string
		wantErr   func(error) bool
	}{
		{name: "missing file name", projectID: "p1", docTypeID: dt.ID, wantErr: core.IsValidation},
		{name: "unknown document type", projectID: "p1", docTypeID: "nope", fileName: "a.pdf", wantErr: core.IsValidation},
		{name: "unknown project", projectID: "nope", docTypeID: dt.ID, fileName: "a.pdf", wantErr: core.IsNotFound},
		{name: "first version", projectID: "p1", docTypeID: dt.ID, fileName: "a.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := env.Submissions.Upload(ctx, submission.NewUpload{
				ProjectID:      tt.projectID,
				DocumentTypeID: tt.docTypeID,
				FileName:       tt.fileName,
			}, testutil.Student)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, sub.Version)
			assert.Equal(t, submission.StatusPendingSupervisor, sub.Status)
			assert.Equal(t, testutil.Student.ID, sub.UploadedBy)
			assert.False(t, sub.IsFinal)
			assert.False(t, sub.IsLate)
		})
	}

	assert.Contains(t, env.Events.Kinds(), core.EventSubmissionUploaded)
}

func TestService_Upload_versions(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()

	v1 := env.Upload(t, "p1", dt.ID)
	v2 := env.Upload(t, "p1", dt.ID)
	assert.Equal(t, 1, v1.Version)
	assert.Equal(t, 2, v2.Version)

	// approved latest version: uploads are refused and the counter is left untouched
	env.Approve(t, v2.ID, nil)
	_, err := upload(env, "p1", dt.ID)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)

	_, err = env.Submissions.RequestRevision(ctx, v2.ID, submission.RevisionRequest{Feedback: "missing use cases"}, testutil.Supervisor)
	require.NoError(t, err)
	v3 := env.Upload(t, "p1", dt.ID)
	assert.Equal(t, 3, v3.Version)

	history, err := env.Submissions.History(ctx, "p1", dt.ID)
	require.NoError(t, err)
	versions := make([]int, 0, len(history))
	for _, s := range history {
		versions = append(versions, s.Version)
	}
	assert.Equal(t, []int{1, 2, 3}, versions)

	latest, err := env.Submissions.Latest(ctx, "p1", dt.ID)
	require.NoError(t, err)
	assert.Equal(t, v3.ID, latest.ID)

	// other pairs have their own counter
	env.CreateProject(t, "p2", nil)
	other := env.Upload(t, "p2", dt.ID)
	assert.Equal(t, 1, other.Version)
}

func TestService_Upload_concurrent(t *testing.T) {
	env, dt := setup(t)
	const n = 25

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		versions []int
		errs     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := upload(env, "p1", dt.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			versions = append(versions, sub.Version)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Ints(versions)
	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, versions)
}

// gatedRepository holds an upload between its guard reads and the insert of the new version.
type gatedRepository struct {
	submission.Repository
	entered chan struct{}
	release chan struct{}
}

func (repo *gatedRepository) HasFinalVersion(ctx context.Context, projectID, docTypeID string) (bool, error) {
	close(repo.entered)
	<-repo.release
	return repo.Repository.HasFinalVersion(ctx, projectID, docTypeID)
}

func TestService_Upload_whileMarkingFinal(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()
	v1 := env.Upload(t, "p1", dt.ID)

	repo := &gatedRepository{
		Repository: env.SubmissionRepo,
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	svc := submission.NewService(
		repo, env.DB, env.DocTypes, env.Deadlines, env.MarksRepo, env.Checker, env.Bus, env.Conf.Scoring,
	)

	var v2 submission.Submission
	uploaded := make(chan error, 1)
	go func() {
		var err error
		v2, err = svc.Upload(ctx, submission.NewUpload{ProjectID: "p1", DocumentTypeID: dt.ID, FileName: "v2.pdf"}, testutil.Student)
		uploaded <- err
	}()
	<-repo.entered

	marked := make(chan error, 1)
	go func() {
		_, err := env.Submissions.MarkFinal(ctx, v1.ID, testutil.Student)
		marked <- err
	}()
	select {
	case err := <-marked:
		t.Fatalf("MarkFinal() returned during an upload of the same document: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(repo.release)

	require.NoError(t, <-uploaded)
	assert.Equal(t, 2, v2.Version)
	err := <-marked
	assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

	got, err := env.Submissions.Get(ctx, v1.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFinal)

	// the latest version can still be marked final
	got, err = env.Submissions.MarkFinal(ctx, v2.ID, testutil.Student)
	require.NoError(t, err)
	assert.True(t, got.IsFinal)
}

func TestService_Upload_late(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()
	_, err := env.Deadlines.CreateBatch(ctx, deadline.NewBatch{
		Name:        "2024",
		AppliesFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Deadlines: []deadline.NewDeadline{
			{DocumentTypeID: dt.ID, DeadlineDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	}, testutil.Coordinator)
	require.NoError(t, err)

	defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

	core.NowFunc = func() time.Time { return time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC) }
	onTime := env.Upload(t, "p1", dt.ID)
	assert.False(t, onTime.IsLate)

	core.NowFunc = func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) }
	late := env.Upload(t, "p1", dt.ID)
	assert.True(t, late.IsLate)
}

func TestService_MarkFinal(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()

	v1 := env.Upload(t, "p1", dt.ID)
	sub, err := env.Submissions.MarkFinal(ctx, v1.ID, testutil.Student)
	require.NoError(t, err)
	assert.True(t, sub.IsFinal)
	assert.Equal(t, submission.StatusPendingSupervisor, sub.Status)

	_, err = env.Submissions.MarkFinal(ctx, v1.ID, testutil.Student)
	assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

	// no new version once one is final
	_, err = upload(env, "p1", dt.ID)
	assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

	// locked submissions cannot be marked final
	env.CreateProject(t, "p2", nil)
	locked := env.Upload(t, "p2", dt.ID)
	env.Approve(t, locked.ID, nil)
	_, err = env.Submissions.LockForEvaluation(ctx, locked.ID, testutil.Coordinator)
	require.NoError(t, err)
	_, err = env.Submissions.MarkFinal(ctx, locked.ID, testutil.Student)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)

	_, err = env.Submissions.MarkFinal(ctx, "nope", testutil.Student)
	assert.True(t, core.IsNotFound(err))
}

func TestService_review(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()
	sub := env.Upload(t, "p1", dt.ID)

	_, err := env.Submissions.Approve(ctx, sub.ID, submission.Approval{Score: testutil.FloatPtr(101)}, testutil.Supervisor)
	assert.True(t, core.IsValidation(err))

	_, err = env.Submissions.RequestRevision(ctx, sub.ID, submission.RevisionRequest{Feedback: "  "}, testutil.Supervisor)
	assert.True(t, core.IsValidation(err))

	approved, err := env.Submissions.Approve(ctx, sub.ID, submission.Approval{Score: testutil.FloatPtr(88.456), Comments: "good"}, testutil.Supervisor)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusApprovedBySupervisor, approved.Status)
	require.NotNil(t, approved.SupervisorScore)
	assert.Equal(t, 88.46, *approved.SupervisorScore)
	assert.Equal(t, testutil.Supervisor.ID, approved.SupervisorReviewedBy)
	assert.NotNil(t, approved.SupervisorReviewedAt)
	assert.Equal(t, "good", approved.Comments)

	revised, err := env.Submissions.RequestRevision(ctx, sub.ID, submission.RevisionRequest{Feedback: "fix the diagrams"}, testutil.Supervisor)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusRevisionRequested, revised.Status)
	assert.Nil(t, revised.SupervisorScore)
	assert.Equal(t, "fix the diagrams", revised.Comments)

	evts := env.Events.Events()
	last := evts[len(evts)-1]
	assert.Equal(t, core.EventRevisionRequested, last.Kind)
	assert.Equal(t, string(submission.StatusApprovedBySupervisor), last.OldState)
	assert.Equal(t, string(submission.StatusRevisionRequested), last.NewState)
	assert.Equal(t, "p1", last.ProjectID)
}

func TestService_evaluationLifecycle(t *testing.T) {
	env, dt := setup(t)
	ctx := context.Background()
	sub := env.Upload(t, "p1", dt.ID)

	// out of order
	_, err := env.Submissions.LockForEvaluation(ctx, sub.ID, testutil.Coordinator)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)
	_, err = env.Submissions.FinalizeEvaluation(ctx, sub.ID, testutil.Coordinator)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)

	env.Approve(t, sub.ID, nil)
	env.StartEvaluation(t, sub.ID)

	// locked for the supervisor
	_, err = env.Submissions.Approve(ctx, sub.ID, submission.Approval{}, testutil.Supervisor)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)
	_, err = env.Submissions.RequestRevision(ctx, sub.ID, submission.RevisionRequest{Feedback: "late"}, testutil.Supervisor)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)

	// marks are required, and final
	_, err = env.Submissions.FinalizeEvaluation(ctx, sub.ID, testutil.Coordinator)
	assert.True(t, core.IsBusinessRule(err), "unexpected error: %v", err)
	env.Score(t, sub.ID, testutil.Evaluator(1), 80, true)
	env.Score(t, sub.ID, testutil.Evaluator(2), 70, false)
	_, err = env.Submissions.FinalizeEvaluation(ctx, sub.ID, testutil.Coordinator)
	assert.True(t, core.IsBusinessRule(err), "unexpected error: %v", err)
	env.Score(t, sub.ID, testutil.Evaluator(2), 75, true)

	finalized, err := env.Submissions.FinalizeEvaluation(ctx, sub.ID, testutil.Coordinator)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusEvalFinalized, finalized.Status)

	_, err = env.Submissions.FinalizeEvaluation(ctx, sub.ID, testutil.Coordinator)
	assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)
}

func TestService_FinalizeEvaluation_withoutMarks(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Scoring.RequireAllMarksFinal = false
	env, dt := setup(t, conf)

	sub := env.Upload(t, "p1", dt.ID)
	env.Approve(t, sub.ID, nil)
	env.StartEvaluation(t, sub.ID)

	finalized, err := env.Submissions.FinalizeEvaluation(context.Background(), sub.ID, testutil.Coordinator)
	require.NoError(t, err)
	assert.Equal(t, submission.StatusEvalFinalized, finalized.Status)
}

func TestService_FinalizeEvaluation_concurrent(t *testing.T) {
	env, dt := setup(t)
	sub := env.Upload(t, "p1", dt.ID)
	env.Approve(t, sub.ID, nil)
	env.StartEvaluation(t, sub.ID)
	env.Score(t, sub.ID, testutil.Evaluator(1), 90, true)

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Submissions.FinalizeEvaluation(context.Background(), sub.ID, testutil.Coordinator)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case core.IsStateConflict(err):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflict)
}
