package authz

import (
	"testing"

	"minicode/internal/models"
)

func TestCan(t *testing.T) {
	student := Actor{ID: 1, Role: models.RoleStudent}
	faculty := Actor{ID: 2, Role: models.RoleFaculty}
	otherFaculty := Actor{ID: 3, Role: models.RoleFaculty}
	admin := Actor{ID: 4, Role: models.RoleAdmin}

	owned := Resource{OwnerID: 2}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		want   bool
	}{
		{"student views problems", student, ActionViewProblems, Resource{}, true},
		{"student starts problem", student, ActionStartProblem, Resource{}, true},
		{"student submits", student, ActionSubmit, Resource{}, true},
		{"student cannot create", student, ActionCreateProblem, Resource{}, false},
		{"student cannot view analytics", student, ActionViewAnalytics, owned, false},

		{"faculty creates problems", faculty, ActionCreateProblem, Resource{}, true},
		{"faculty edits own problem", faculty, ActionEditProblem, owned, true},
		{"faculty deletes own problem", faculty, ActionDeleteProblem, owned, true},
		{"faculty adds test cases to own problem", faculty, ActionAddTestCases, owned, true},
		{"faculty views own analytics", faculty, ActionViewAnalytics, owned, true},
		{"faculty cannot touch another author's problem", otherFaculty, ActionEditProblem, owned, false},
		{"faculty cannot manage users", faculty, ActionManageUsers, Resource{}, false},

		{"admin edits anything", admin, ActionEditProblem, owned, true},
		{"admin manages users", admin, ActionManageUsers, Resource{}, true},

		{"unknown action denied", faculty, Action("reboot"), Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Can(tt.actor, tt.action, tt.res); got != tt.want {
				t.Errorf("Can(%v, %s, %v) = %v, want %v", tt.actor, tt.action, tt.res, got, tt.want)
			}
		})
	}
}
