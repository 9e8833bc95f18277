package models

import "time"

// Workspace is the per-(user, problem) GitHub repository a student solves
// in. At most one exists per pair, enforced by a unique key; provisioning
// again returns the existing row.
type Workspace struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	ProblemID int       `db:"problem_id" json:"problem_id"`
	RepoName  string    `db:"repo_name" json:"repo_name"`
	RepoURL   string    `db:"repo_url" json:"repo_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
