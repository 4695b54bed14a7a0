package core

// Roles
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleSupervisor  = "supervisor"
	RoleEvaluator   = "evaluator"
	RoleStudent     = "student"
)

var AllRoles = []string{RoleAdmin, RoleCoordinator, RoleSupervisor, RoleEvaluator, RoleStudent}

func IsRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor identifies who triggered an operation.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

func (a Actor) IsZero() bool { return a.ID == "" }
