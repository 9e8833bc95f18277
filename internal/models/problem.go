package models

import (
	"errors"
	"strings"
	"time"
)

const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

type Problem struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Difficulty  string    `db:"difficulty" json:"difficulty"`
	AuthorID    *int      `db:"author_id" json:"author_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ProblemListItem struct {
	ID         int    `db:"id" json:"id"`
	Title      string `db:"title" json:"title"`
	Difficulty string `db:"difficulty" json:"difficulty"`
}

type CreateProblemRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Difficulty  string `json:"difficulty" binding:"required"`
}

func (r *CreateProblemRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description cannot be empty")
	}
	switch r.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return nil
	default:
		return errors.New("difficulty must be one of Easy, Medium, Hard")
	}
}

type TestCase struct {
	ID             int    `db:"id" json:"id"`
	ProblemID      int    `db:"problem_id" json:"problem_id"`
	Input          string `db:"input" json:"input"`
	ExpectedOutput string `db:"expected_output" json:"expected_output"`
	IsSample       bool   `db:"is_sample" json:"is_sample"`
}

type AddTestCasesRequest struct {
	TestCases []struct {
		Input          string `json:"input"`
		ExpectedOutput string `json:"expected_output" binding:"required"`
		IsSample       bool   `json:"is_sample"`
	} `json:"test_cases" binding:"required"`
}

func (r *AddTestCasesRequest) Validate() error {
	if len(r.TestCases) == 0 {
		return errors.New("at least one test case is required")
	}
	for _, tc := range r.TestCases {
		if strings.TrimSpace(tc.ExpectedOutput) == "" {
			return errors.New("expected output cannot be empty")
		}
	}
	return nil
}

// ProblemAnalytics is the per-problem summary served to faculty.
type ProblemAnalytics struct {
	ProblemTitle     string  `json:"problem_title"`
	TotalSubmissions int     `json:"total_submissions"`
	AcceptedCount    int     `json:"accepted_count"`
	AverageScore     float64 `json:"average_score"`
}
