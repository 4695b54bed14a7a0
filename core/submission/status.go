package submission

import "github.com/trezcool/fyp/core"

// Status is the lifecycle state of a submission.
type Status string

// Statuses
const (
	StatusPendingSupervisor    Status = "PENDING_SUPERVISOR"
	StatusRevisionRequested    Status = "REVISION_REQUESTED"
	StatusApprovedBySupervisor Status = "APPROVED_BY_SUPERVISOR"
	StatusLockedForEval        Status = "LOCKED_FOR_EVAL"
	StatusEvalInProgress       Status = "EVAL_IN_PROGRESS"
	StatusEvalFinalized        Status = "EVAL_FINALIZED" // terminal
)

var AllStatuses = []Status{
	StatusPendingSupervisor,
	StatusRevisionRequested,
	StatusApprovedBySupervisor,
	StatusLockedForEval,
	StatusEvalInProgress,
	StatusEvalFinalized,
}

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsLocked reports whether the submission is out of the supervisor's hands.
func (s Status) IsLocked() bool {
	return s == StatusLockedForEval || s == StatusEvalInProgress || s == StatusEvalFinalized
}

// PassedSupervisor reports whether the submission was approved by its supervisor at some point.
// LOCKED_FOR_EVAL is only reachable through APPROVED_BY_SUPERVISOR.
func (s Status) PassedSupervisor() bool {
	return s == StatusApprovedBySupervisor || s.IsLocked()
}

// Action is something a caller attempts on a submission.
type Action string

// Actions
const (
	ActionSupersede          Action = "upload a new version"
	ActionMarkFinal          Action = "mark final"
	ActionApprove            Action = "approve"
	ActionRequestRevision    Action = "request revision"
	ActionLockForEvaluation  Action = "lock for evaluation"
	ActionStartEvaluation    Action = "start evaluation"
	ActionFinalizeEvaluation Action = "finalize evaluation"
	ActionScore              Action = "score"
)

// transitions maps each action to the states it is allowed from, and the resulting state.
// Every transition of the lifecycle goes through this table.
var transitions = map[Action]map[Status]Status{
	ActionSupersede: {
		StatusPendingSupervisor: StatusPendingSupervisor,
		StatusRevisionRequested: StatusRevisionRequested,
	},
	ActionMarkFinal: {
		StatusPendingSupervisor:    StatusPendingSupervisor,
		StatusRevisionRequested:    StatusRevisionRequested,
		StatusApprovedBySupervisor: StatusApprovedBySupervisor,
	},
	ActionApprove: {
		StatusPendingSupervisor:    StatusApprovedBySupervisor,
		StatusRevisionRequested:    StatusApprovedBySupervisor,
		StatusApprovedBySupervisor: StatusApprovedBySupervisor,
	},
	ActionRequestRevision: {
		StatusPendingSupervisor:    StatusRevisionRequested,
		StatusRevisionRequested:    StatusRevisionRequested,
		StatusApprovedBySupervisor: StatusRevisionRequested,
	},
	ActionLockForEvaluation: {
		StatusApprovedBySupervisor: StatusLockedForEval,
	},
	ActionStartEvaluation: {
		StatusLockedForEval:        StatusEvalInProgress,
		StatusApprovedBySupervisor: StatusEvalInProgress,
	},
	ActionFinalizeEvaluation: {
		StatusEvalInProgress: StatusEvalFinalized,
	},
	ActionScore: {
		StatusLockedForEval:  StatusLockedForEval,
		StatusEvalInProgress: StatusEvalInProgress,
	},
}

// Next returns the state reached by applying the action to the submission,
// or a *core.StateConflictError when the action is not allowed from its current state.
func (s Submission) Next(action Action) (Status, error) {
	if to, ok := transitions[action][s.Status]; ok {
		return to, nil
	}
	return "", core.NewStateConflictError(Entity, s.ID, string(s.Status), string(action))
}

// Allows reports whether the action is allowed from the current state.
func (s Submission) Allows(action Action) bool {
	_, ok := transitions[action][s.Status]
	return ok
}
