package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fyp/core"
)

func TestSubmission_Next(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
		want   Status // "" when not allowed
	}{
		{StatusPendingSupervisor, ActionApprove, StatusApprovedBySupervisor},
		{StatusPendingSupervisor, ActionRequestRevision, StatusRevisionRequested},
		{StatusPendingSupervisor, ActionSupersede, StatusPendingSupervisor},
		{StatusPendingSupervisor, ActionMarkFinal, StatusPendingSupervisor},
		{StatusPendingSupervisor, ActionLockForEvaluation, ""},
		{StatusPendingSupervisor, ActionStartEvaluation, ""},
		{StatusPendingSupervisor, ActionScore, ""},

		{StatusRevisionRequested, ActionApprove, StatusApprovedBySupervisor},
		{StatusRevisionRequested, ActionRequestRevision, StatusRevisionRequested},
		{StatusRevisionRequested, ActionSupersede, StatusRevisionRequested},
		{StatusRevisionRequested, ActionLockForEvaluation, ""},

		{StatusApprovedBySupervisor, ActionRequestRevision, StatusRevisionRequested},
		{StatusApprovedBySupervisor, ActionLockForEvaluation, StatusLockedForEval},
		{StatusApprovedBySupervisor, ActionStartEvaluation, StatusEvalInProgress},
		{StatusApprovedBySupervisor, ActionMarkFinal, StatusApprovedBySupervisor},
		{StatusApprovedBySupervisor, ActionSupersede, ""},
		{StatusApprovedBySupervisor, ActionFinalizeEvaluation, ""},

		{StatusLockedForEval, ActionStartEvaluation, StatusEvalInProgress},
		{StatusLockedForEval, ActionScore, StatusLockedForEval},
		{StatusLockedForEval, ActionApprove, ""},
		{StatusLockedForEval, ActionRequestRevision, ""},
		{StatusLockedForEval, ActionMarkFinal, ""},
		{StatusLockedForEval, ActionSupersede, ""},
		{StatusLockedForEval, ActionFinalizeEvaluation, ""},

		{StatusEvalInProgress, ActionFinalizeEvaluation, StatusEvalFinalized},
		{StatusEvalInProgress, ActionScore, StatusEvalInProgress},
		{StatusEvalInProgress, ActionLockForEvaluation, ""},
		{StatusEvalInProgress, ActionApprove, ""},

		{StatusEvalFinalized, ActionFinalizeEvaluation, ""},
		{StatusEvalFinalized, ActionScore, ""},
		{StatusEvalFinalized, ActionStartEvaluation, ""},
		{StatusEvalFinalized, ActionSupersede, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+": "+string(tt.action), func(t *testing.T) {
			sub := Submission{ID: "sub", Status: tt.from}
			got, err := sub.Next(tt.action)
			if tt.want == "" {
				assert.True(t, core.IsStateConflict(err), "unexpected error: %v", err)
				assert.False(t, sub.Allows(tt.action))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, sub.Allows(tt.action))
		})
	}
}

func TestStatus(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("DRAFT").Valid())

	assert.False(t, StatusPendingSupervisor.PassedSupervisor())
	assert.False(t, StatusRevisionRequested.PassedSupervisor())
	assert.True(t, StatusApprovedBySupervisor.PassedSupervisor())
	assert.True(t, StatusEvalFinalized.PassedSupervisor())

	assert.False(t, StatusApprovedBySupervisor.IsLocked())
	assert.True(t, StatusLockedForEval.IsLocked())
}

func TestNext_errorMessage(t *testing.T) {
	_, err := Submission{ID: "42", Status: StatusEvalFinalized}.Next(ActionFinalizeEvaluation)
	assert.EqualError(t, err, "submission 42: cannot finalize evaluation while EVAL_FINALIZED")
}
