package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/result"
	"github.com/trezcool/fyp/core/submission"
	"github.com/trezcool/fyp/tests"
)

func do(t *testing.T, app *Server, method, path, token string, body []byte, wantCode int, obj interface{}) {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, wantCode, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if obj != nil {
		unmarshallObj(t, rec.Body.Bytes(), obj)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	app, env := setup(t)
	srs := env.CreateDocType(t, doctype.CodeSRS, 40, 60, 1)
	env.CreateProject(t, "p1", testutil.TimePtr(time.Now().UTC()))

	studentToken := getToken(t, env, testutil.Student)
	supToken := getToken(t, env, testutil.Supervisor)
	coordToken := getToken(t, env, testutil.Coordinator)
	evalTokens := []string{
		getToken(t, env, testutil.Evaluator(1)),
		getToken(t, env, testutil.Evaluator(2)),
		getToken(t, env, testutil.Evaluator(3)),
	}

	// upload
	upload := marchallObj(t, submission.NewUpload{ProjectID: "p1", DocumentTypeID: srs.ID, FileName: "srs.pdf"})
	do(t, app, http.MethodPost, "/v1/submissions", supToken, upload, http.StatusForbidden, nil)
	var sub submission.Submission
	do(t, app, http.MethodPost, "/v1/submissions", studentToken, upload, http.StatusCreated, &sub)
	assert.Equal(t, 1, sub.Version)
	assert.Equal(t, submission.StatusPendingSupervisor, sub.Status)
	assert.Equal(t, testutil.Student.ID, sub.UploadedBy)

	// a pending version can be superseded
	do(t, app, http.MethodPost, "/v1/submissions", studentToken, upload, http.StatusCreated, &sub)
	assert.Equal(t, 2, sub.Version)
	var latest submission.Submission
	do(t, app, http.MethodGet, "/v1/projects/p1/documents/"+srs.ID+"/submissions/latest", studentToken, nil, http.StatusOK, &latest)
	assert.Equal(t, sub.ID, latest.ID)

	subPath := "/v1/submissions/" + sub.ID

	// review
	do(t, app, http.MethodPost, subPath+"/approve", studentToken, []byte(`{}`), http.StatusForbidden, nil)
	do(t, app, http.MethodPost, subPath+"/lock", coordToken, nil, http.StatusConflict, nil)
	do(t, app, http.MethodPost, subPath+"/approve", supToken, []byte(`{"score":120}`), http.StatusBadRequest, nil)
	do(t, app, http.MethodPost, subPath+"/approve", supToken, []byte(`{"score":90,"comments":"good"}`), http.StatusOK, &sub)
	assert.Equal(t, submission.StatusApprovedBySupervisor, sub.Status)
	require.NotNil(t, sub.SupervisorScore)
	assert.Equal(t, 90.0, *sub.SupervisorScore)

	// evaluation
	do(t, app, http.MethodPut, subPath+"/marks", evalTokens[0], []byte(`{"score":80}`), http.StatusConflict, nil)
	do(t, app, http.MethodPost, subPath+"/lock", coordToken, nil, http.StatusOK, &sub)
	assert.Equal(t, submission.StatusLockedForEval, sub.Status)
	do(t, app, http.MethodPost, subPath+"/start", coordToken, nil, http.StatusOK, &sub)
	assert.Equal(t, submission.StatusEvalInProgress, sub.Status)

	do(t, app, http.MethodPut, subPath+"/marks", supToken, []byte(`{"score":80}`), http.StatusForbidden, nil)
	do(t, app, http.MethodPut, subPath+"/marks", evalTokens[0], []byte(`{"score":101}`), http.StatusBadRequest, nil)
	for i, score := range []float64{80, 85, 90} {
		var m evaluation.Marks
		body := marchallObj(t, evaluation.NewMarks{Score: score, Finalize: true})
		do(t, app, http.MethodPut, subPath+"/marks", evalTokens[i], body, http.StatusOK, &m)
		assert.Equal(t, fmt.Sprintf("eval-%d", i+1), m.EvaluatorID)
		assert.True(t, m.IsFinal)
	}
	// final marks are immutable
	do(t, app, http.MethodPut, subPath+"/marks", evalTokens[0], []byte(`{"score":10}`), http.StatusConflict, nil)

	var sum evaluation.Summary
	do(t, app, http.MethodGet, subPath+"/marks", studentToken, nil, http.StatusForbidden, nil)
	do(t, app, http.MethodGet, subPath+"/marks", coordToken, nil, http.StatusOK, &sum)
	assert.Equal(t, 85.0, sum.AverageFinal)
	assert.True(t, sum.AllFinal)

	do(t, app, http.MethodPost, subPath+"/finalize", coordToken, nil, http.StatusOK, &sub)
	assert.Equal(t, submission.StatusEvalFinalized, sub.Status)
	do(t, app, http.MethodPost, subPath+"/finalize", coordToken, nil, http.StatusConflict, nil)

	// result
	resPath := "/v1/results/p1"
	do(t, app, http.MethodPost, resPath+"/release", coordToken, nil, http.StatusNotFound, nil)
	do(t, app, http.MethodPost, resPath+"/compute", studentToken, nil, http.StatusForbidden, nil)
	var res result.FinalResult
	do(t, app, http.MethodPost, resPath+"/compute", coordToken, nil, http.StatusOK, &res)
	assert.Equal(t, 87.0, res.TotalScore)
	require.Len(t, res.Details.Items, 1)
	assert.Equal(t, doctype.CodeSRS, res.Details.Items[0].DocTypeCode)

	// students only see released results
	do(t, app, http.MethodGet, resPath, studentToken, nil, http.StatusNotFound, nil)
	do(t, app, http.MethodGet, resPath, supToken, nil, http.StatusOK, nil)

	do(t, app, http.MethodPost, resPath+"/release", coordToken, nil, http.StatusOK, &res)
	assert.True(t, res.Released)
	assert.Equal(t, testutil.Coordinator.ID, res.ReleasedBy)
	do(t, app, http.MethodPost, resPath+"/release", coordToken, nil, http.StatusConflict, nil)
	do(t, app, http.MethodPost, resPath+"/compute", coordToken, nil, http.StatusConflict, nil)
	do(t, app, http.MethodGet, resPath, studentToken, nil, http.StatusOK, &res)
	assert.Equal(t, 87.0, res.TotalScore)

	assert.Contains(t, env.Events.Kinds(), core.EventResultReleased)
}

func TestSubmissionAPI_revision(t *testing.T) {
	app, env := setup(t)
	srs := env.CreateDocType(t, doctype.CodeSRS, 40, 60, 1)
	env.CreateProject(t, "p1", testutil.TimePtr(time.Now().UTC()))
	sub := env.Upload(t, "p1", srs.ID)
	supToken := getToken(t, env, testutil.Supervisor)
	studentToken := getToken(t, env, testutil.Student)
	path := "/v1/submissions/" + sub.ID

	tests := []httpTest{
		{name: "unknown", method: http.MethodGet, path: "/v1/submissions/lol", token: studentToken, wantCode: http.StatusNotFound},
		{name: "no feedback", method: http.MethodPost, path: path + "/revision", body: []byte(`{"feedback":"  "}`), token: supToken, wantCode: http.StatusBadRequest},
		{name: "student", method: http.MethodPost, path: path + "/revision", body: []byte(`{"feedback":"fix"}`), token: studentToken, wantCode: http.StatusForbidden},
		{name: "valid", method: http.MethodPost, path: path + "/revision", body: []byte(`{"feedback":"fix the diagrams"}`), token: supToken, wantCode: http.StatusOK},
		{name: "lock", method: http.MethodPost, path: path + "/lock", token: getToken(t, env, testutil.Coordinator), wantCode: http.StatusConflict},
		{name: "mark final", method: http.MethodPost, path: path + "/final", token: studentToken, wantCode: http.StatusOK},
	}
	runHTTPTests(t, app, tests, checkCode)

	// no new version after a final one
	upload := marchallObj(t, submission.NewUpload{ProjectID: "p1", DocumentTypeID: srs.ID, FileName: "srs-v2.pdf"})
	do(t, app, http.MethodPost, "/v1/submissions", studentToken, upload, http.StatusConflict, nil)

	var history []submission.Submission
	do(t, app, http.MethodGet, "/v1/projects/p1/documents/"+srs.ID+"/submissions", studentToken, nil, http.StatusOK, &history)
	require.Len(t, history, 1)
	assert.Equal(t, submission.StatusRevisionRequested, history[0].Status)
	assert.True(t, history[0].IsFinal)
	assert.Equal(t, "fix the diagrams", history[0].Comments)
}
