package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"minicode/internal/models"

	"github.com/jmoiron/sqlx"
)

type ProblemRepository interface {
	GetProblems(ctx context.Context) ([]models.ProblemListItem, error)
	GetProblemByID(ctx context.Context, problemID int) (*models.Problem, error)
	GetProblemsByAuthor(ctx context.Context, authorID int) ([]models.Problem, error)
	CreateProblem(ctx context.Context, problem *models.Problem) error
	DeleteProblem(ctx context.Context, problemID int) error
	GetTestCases(ctx context.Context, problemID int) ([]models.TestCase, error)
	GetSampleTestCases(ctx context.Context, problemID int) ([]models.TestCase, error)
	AddTestCases(ctx context.Context, problemID int, cases []models.TestCase) error
}

type problemRepository struct {
	db *sqlx.DB
}

func NewProblemRepository(db *sqlx.DB) ProblemRepository {
	return &problemRepository{db: db}
}

func (r *problemRepository) GetProblems(ctx context.Context) ([]models.ProblemListItem, error) {
	var problems []models.ProblemListItem
	query := `SELECT id, title, difficulty FROM problems ORDER BY id`
	if err := r.db.SelectContext(ctx, &problems, query); err != nil {
		return nil, fmt.Errorf("failed to get problems: %w", err)
	}
	return problems, nil
}

func (r *problemRepository) GetProblemByID(ctx context.Context, problemID int) (*models.Problem, error) {
	var problem models.Problem
	query := `SELECT id, title, description, difficulty, author_id, created_at
              FROM problems WHERE id = ?`
	if err := r.db.GetContext(ctx, &problem, query, problemID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("problem not found: %d", problemID)
		}
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	return &problem, nil
}

func (r *problemRepository) GetProblemsByAuthor(ctx context.Context, authorID int) ([]models.Problem, error) {
	var problems []models.Problem
	query := `SELECT id, title, description, difficulty, author_id, created_at
              FROM problems WHERE author_id = ? ORDER BY id`
	if err := r.db.SelectContext(ctx, &problems, query, authorID); err != nil {
		return nil, fmt.Errorf("failed to get problems by author: %w", err)
	}
	return problems, nil
}

func (r *problemRepository) CreateProblem(ctx context.Context, problem *models.Problem) error {
	query := `INSERT INTO problems (title, description, difficulty, author_id) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		problem.Title, problem.Description, problem.Difficulty, problem.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to create problem: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	problem.ID = int(id)
	return nil
}

func (r *problemRepository) DeleteProblem(ctx context.Context, problemID int) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM test_cases WHERE problem_id = ?`, problemID); err != nil {
		return fmt.Errorf("failed to delete test cases: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = ?`, problemID); err != nil {
		return fmt.Errorf("failed to delete problem: %w", err)
	}
	return nil
}

func (r *problemRepository) GetTestCases(ctx context.Context, problemID int) ([]models.TestCase, error) {
	var cases []models.TestCase
	query := `SELECT id, problem_id, input, expected_output, is_sample
              FROM test_cases WHERE problem_id = ? ORDER BY id`
	if err := r.db.SelectContext(ctx, &cases, query, problemID); err != nil {
		return nil, fmt.Errorf("failed to get test cases: %w", err)
	}
	return cases, nil
}

// GetSampleTestCases returns the cases shown on the problem page. Problems
// without an is_sample distinction expose everything, matching how samples
// were displayed before the flag existed.
func (r *problemRepository) GetSampleTestCases(ctx context.Context, problemID int) ([]models.TestCase, error) {
	all, err := r.GetTestCases(ctx, problemID)
	if err != nil {
		return nil, err
	}
	samples := make([]models.TestCase, 0, len(all))
	for _, tc := range all {
		if tc.IsSample {
			samples = append(samples, tc)
		}
	}
	if len(samples) == 0 {
		return all, nil
	}
	return samples, nil
}

func (r *problemRepository) AddTestCases(ctx context.Context, problemID int, cases []models.TestCase) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO test_cases (problem_id, input, expected_output, is_sample) VALUES (?, ?, ?, ?)`
	for _, tc := range cases {
		if _, err := tx.ExecContext(ctx, query, problemID, tc.Input, tc.ExpectedOutput, tc.IsSample); err != nil {
			return fmt.Errorf("failed to add test case: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test cases: %w", err)
	}
	return nil
}
