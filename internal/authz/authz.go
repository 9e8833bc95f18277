package authz

import "minicode/internal/models"

type Action string

const (
	ActionViewProblems  Action = "view_problems"
	ActionStartProblem  Action = "start_problem"
	ActionSubmit        Action = "submit"
	ActionCreateProblem Action = "create_problem"
	ActionEditProblem   Action = "edit_problem"
	ActionDeleteProblem Action = "delete_problem"
	ActionAddTestCases  Action = "add_test_cases"
	ActionViewAnalytics Action = "view_analytics"
	ActionManageUsers   Action = "manage_users"
)

// Actor is the identity a request acts as.
type Actor struct {
	ID   int
	Role string
}

// Resource names what the action touches. OwnerID is 0 for global actions.
type Resource struct {
	OwnerID int
}

// Can is the single capability check for the whole pipeline, evaluated once
// at the request boundary rather than scattered across surfaces.
func Can(a Actor, action Action, r Resource) bool {
	if a.Role == models.RoleAdmin {
		return true
	}

	switch action {
	case ActionViewProblems, ActionStartProblem, ActionSubmit:
		return true
	case ActionCreateProblem:
		return a.Role == models.RoleFaculty
	case ActionEditProblem, ActionDeleteProblem, ActionAddTestCases, ActionViewAnalytics:
		return a.Role == models.RoleFaculty && r.OwnerID == a.ID
	case ActionManageUsers:
		return false
	default:
		return false
	}
}
