package judge

import (
	"context"

	"minicode/internal/models"
)

// Snapshot is the committed state of a workspace solution file, pinned to
// the commit that was HEAD when the fetch happened. Pushes racing with an
// evaluation cannot change what gets judged.
type Snapshot struct {
	CommitSHA string
	Content   string
}

// Fetcher retrieves the solution file from a workspace repository.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, token, owner, repo, path string) (*Snapshot, error)
}

// Runner executes submitted code against the problem's test cases inside a
// resource-isolated sandbox.
type Runner interface {
	Run(ctx context.Context, code, language string, cases []models.TestCase) (*RunOutcome, error)
}

// RunOutcome is the deterministic check result.
type RunOutcome struct {
	Passed      bool
	Total       int
	PassedCount int
	FailedCase  *CaseResult
	Summary     string
}

type CaseResult struct {
	TestCaseID int
	Input      string
	Expected   string
	Actual     string
}

// Grader asks an external reasoning model to review the code.
type Grader interface {
	Grade(ctx context.Context, req GradeRequest) (*GradeResult, error)
}

type GradeRequest struct {
	Code        string
	Language    string
	Title       string
	Description string
	TestCases   []models.TestCase
}

type GradeResult struct {
	Status   string
	Score    int
	Feedback string
}

// Verdict is the structured outcome of one evaluation. Score is nil
// whenever the qualitative check did not complete.
type Verdict struct {
	Status      string
	Score       *int
	Feedback    string
	Blocks      []models.FeedbackBlock
	JudgeOutput string
}
