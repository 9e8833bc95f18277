package judge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"minicode/internal/models"
)

type fakeStore struct {
	submission *models.Submission
	getErr     error

	finalized    *Finalization
	finalizeErrs []error // consumed per call, nil entry means success
	calls        int
}

func (f *fakeStore) GetSubmission(ctx context.Context, id int) (*models.Submission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.submission, nil
}

func (f *fakeStore) Finalize(ctx context.Context, id int, fin Finalization) error {
	f.calls++
	if len(f.finalizeErrs) > 0 {
		err := f.finalizeErrs[0]
		f.finalizeErrs = f.finalizeErrs[1:]
		if err != nil {
			return err
		}
	}
	f.finalized = &fin
	return nil
}

type fakeUsers struct {
	user *models.User
	err  error
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return f.user, f.err
}

type fakeProblems struct {
	problem *models.Problem
	cases   []models.TestCase
	err     error
}

func (f *fakeProblems) GetProblemByID(ctx context.Context, id int) (*models.Problem, error) {
	return f.problem, f.err
}

func (f *fakeProblems) GetTestCases(ctx context.Context, problemID int) ([]models.TestCase, error) {
	return f.cases, nil
}

type fakeWorkspaces struct {
	ws  *models.Workspace
	err error
}

func (f *fakeWorkspaces) GetByUserAndProblem(ctx context.Context, userID, problemID int) (*models.Workspace, error) {
	return f.ws, f.err
}

type fakeFetcher struct {
	snapshot *Snapshot
	err      error

	gotRepo string
	gotPath string
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, token, owner, repo, path string) (*Snapshot, error) {
	f.gotRepo = repo
	f.gotPath = path
	return f.snapshot, f.err
}

func strptr(s string) *string { return &s }

func pendingSubmission() *models.Submission {
	return &models.Submission{
		ID: 7, UserID: 1, ProblemID: 2,
		Language: strptr("python"),
		Status:   models.StatusPending,
	}
}

type fixture struct {
	store      *fakeStore
	users      *fakeUsers
	problems   *fakeProblems
	workspaces *fakeWorkspaces
	fetcher    *fakeFetcher
	runner     *fakeRunner
	grader     *fakeGrader
}

func healthyFixture() *fixture {
	return &fixture{
		store: &fakeStore{submission: pendingSubmission()},
		users: &fakeUsers{user: &models.User{
			ID: 1, Username: "alice", GithubAccessToken: strptr("gho_token"),
		}},
		problems: &fakeProblems{
			problem: &models.Problem{ID: 2, Title: "Two Sum", Description: "add"},
			cases:   someCases,
		},
		workspaces: &fakeWorkspaces{ws: &models.Workspace{
			ID: 3, UserID: 1, ProblemID: 2, RepoName: "minicode-alice-two-sum",
		}},
		fetcher: &fakeFetcher{snapshot: &Snapshot{CommitSHA: "abc123", Content: "print(3)"}},
		runner:  &fakeRunner{outcome: &RunOutcome{Passed: true, Total: 1, PassedCount: 1, Summary: "1/1 passed"}},
		grader:  &fakeGrader{result: &GradeResult{Status: "accepted", Score: 80, Feedback: "fine"}},
	}
}

func (fx *fixture) orchestrator() *Orchestrator {
	return NewOrchestrator(fx.store, fx.users, fx.problems, fx.workspaces,
		fx.fetcher, NewEvaluator(fx.runner, fx.grader, time.Second),
		time.Second, time.Second)
}

func TestRunHappyPath(t *testing.T) {
	fx := healthyFixture()
	if err := fx.orchestrator().Run(context.Background(), 7); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fin := fx.store.finalized
	if fin == nil {
		t.Fatal("submission was not finalized")
	}
	if fin.Status != models.StatusAccepted {
		t.Errorf("status = %q, want accepted", fin.Status)
	}
	if fin.Score == nil || *fin.Score != 80 {
		t.Errorf("score = %v, want 80", fin.Score)
	}
	if fin.CommitSHA == nil || *fin.CommitSHA != "abc123" {
		t.Errorf("commit sha = %v, want abc123", fin.CommitSHA)
	}
	if fin.CodeContent == nil || *fin.CodeContent != "print(3)" {
		t.Errorf("code content = %v", fin.CodeContent)
	}
	if fx.fetcher.gotRepo != "minicode-alice-two-sum" {
		t.Errorf("fetched repo = %q", fx.fetcher.gotRepo)
	}
	if fx.fetcher.gotPath != "solution.py" {
		t.Errorf("fetched path = %q, want solution.py", fx.fetcher.gotPath)
	}
}

func TestRunSkipsTerminalSubmission(t *testing.T) {
	fx := healthyFixture()
	fx.store.submission.Status = models.StatusAccepted

	if err := fx.orchestrator().Run(context.Background(), 7); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if fx.store.finalized != nil {
		t.Error("terminal submission was finalized again")
	}
}

func TestRunFailureAlwaysRecordsTerminalError(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*fixture)
		wantKind string
	}{
		{
			name:     "no workspace",
			mutate:   func(fx *fixture) { fx.workspaces.err = errors.New("not found") },
			wantKind: "ProvisionFailed",
		},
		{
			name: "no github token",
			mutate: func(fx *fixture) {
				fx.users.user.GithubAccessToken = nil
			},
			wantKind: "CredentialMissing",
		},
		{
			name:     "fetch timed out",
			mutate:   func(fx *fixture) { fx.fetcher.err = context.DeadlineExceeded },
			wantKind: "FetchTimeout",
		},
		{
			name:     "solution file missing",
			mutate:   func(fx *fixture) { fx.fetcher.err = ErrFileNotFound },
			wantKind: "FileNotFound",
		},
		{
			name:     "evaluation timed out",
			mutate:   func(fx *fixture) { fx.runner.outcome, fx.runner.err = nil, context.DeadlineExceeded },
			wantKind: "EvaluationTimeout",
		},
		{
			name: "whole pipeline dark",
			mutate: func(fx *fixture) {
				fx.problems.cases = nil
				fx.grader.result, fx.grader.err = nil, errors.New("down")
			},
			wantKind: "GradingServiceUnavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := healthyFixture()
			tt.mutate(fx)

			if err := fx.orchestrator().Run(context.Background(), 7); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			fin := fx.store.finalized
			if fin == nil {
				t.Fatal("failed evaluation left no terminal record")
			}
			if fin.Status != models.StatusError {
				t.Errorf("status = %q, want error", fin.Status)
			}
			if fin.Score != nil {
				t.Errorf("score = %v, want nil", *fin.Score)
			}
			if !strings.Contains(fin.Feedback, "Evaluation failed ("+tt.wantKind+")") {
				t.Errorf("feedback = %q, want kind %s", fin.Feedback, tt.wantKind)
			}
		})
	}
}

func TestRunFinalizeRetriesTransientFailure(t *testing.T) {
	fx := healthyFixture()
	fx.store.finalizeErrs = []error{errors.New("deadlock"), errors.New("deadlock"), nil}

	if err := fx.orchestrator().Run(context.Background(), 7); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if fx.store.calls != 3 {
		t.Errorf("finalize calls = %d, want 3", fx.store.calls)
	}
	if fx.store.finalized == nil {
		t.Fatal("verdict was never recorded")
	}
}

func TestRunFinalizeGivesUpAfterRetries(t *testing.T) {
	fx := healthyFixture()
	down := errors.New("db down")
	fx.store.finalizeErrs = []error{down, down, down}

	err := fx.orchestrator().Run(context.Background(), 7)
	if !errors.Is(err, ErrStoreWrite) {
		t.Fatalf("Run() error = %v, want ErrStoreWrite", err)
	}
	if fx.store.calls != 3 {
		t.Errorf("finalize calls = %d, want 3", fx.store.calls)
	}
}

func TestSolutionFilename(t *testing.T) {
	if got := SolutionFilename("go"); got != "solution.go" {
		t.Errorf("SolutionFilename(go) = %q", got)
	}
	if got := SolutionFilename("python"); got != "solution.py" {
		t.Errorf("SolutionFilename(python) = %q", got)
	}
	if got := SolutionFilename(""); got != "solution.py" {
		t.Errorf("SolutionFilename(empty) = %q", got)
	}
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrCredentialMissing, "CredentialMissing"},
		{ErrProvisionFailed, "ProvisionFailed"},
		{ErrFileNotFound, "FileNotFound"},
		{ErrFetchTimeout, "FetchTimeout"},
		{ErrEvaluationTimeout, "EvaluationTimeout"},
		{ErrGradingUnavailable, "GradingServiceUnavailable"},
		{ErrStoreWrite, "StoreWriteFailed"},
		{errors.New("anything else"), "Internal"},
	}
	for _, tt := range tests {
		if got := FailureKind(tt.err); got != tt.want {
			t.Errorf("FailureKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
