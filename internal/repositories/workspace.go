package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"minicode/internal/models"

	"github.com/jmoiron/sqlx"
)

type WorkspaceRepository interface {
	GetByUserAndProblem(ctx context.Context, userID, problemID int) (*models.Workspace, error)
	Create(ctx context.Context, userID, problemID int, repoName, repoURL string) (*models.Workspace, error)
}

type workspaceRepository struct {
	db *sqlx.DB
}

func NewWorkspaceRepository(db *sqlx.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) GetByUserAndProblem(ctx context.Context, userID, problemID int) (*models.Workspace, error) {
	var ws models.Workspace
	query := `SELECT id, user_id, problem_id, repo_name, repo_url, created_at
              FROM workspaces WHERE user_id = ? AND problem_id = ?`
	if err := r.db.GetContext(ctx, &ws, query, userID, problemID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("workspace not found for user %d problem %d", userID, problemID)
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &ws, nil
}

// Create inserts the workspace row. The unique (user_id, problem_id) key
// makes concurrent provision calls race to a single winner; the loser gets
// a duplicate-key error and should re-read the winner's row.
func (r *workspaceRepository) Create(ctx context.Context, userID, problemID int, repoName, repoURL string) (*models.Workspace, error) {
	query := `INSERT INTO workspaces (user_id, problem_id, repo_name, repo_url) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, userID, problemID, repoName, repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	var ws models.Workspace
	getQuery := `SELECT id, user_id, problem_id, repo_name, repo_url, created_at FROM workspaces WHERE id = ?`
	if err := r.db.GetContext(ctx, &ws, getQuery, id); err != nil {
		return nil, fmt.Errorf("failed to read back workspace: %w", err)
	}
	return &ws, nil
}
