package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minicode/internal/feedback"
	"minicode/internal/logger"
	"minicode/internal/models"

	"go.uber.org/zap"
)

// SubmissionStore is the durable, append-only record of evaluation
// attempts. Finalize performs the single pending-to-terminal transition a
// submission ever makes.
type SubmissionStore interface {
	GetSubmission(ctx context.Context, id int) (*models.Submission, error)
	Finalize(ctx context.Context, id int, fin Finalization) error
}

type UserSource interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type ProblemSource interface {
	GetProblemByID(ctx context.Context, id int) (*models.Problem, error)
	GetTestCases(ctx context.Context, problemID int) ([]models.TestCase, error)
}

type WorkspaceSource interface {
	GetByUserAndProblem(ctx context.Context, userID, problemID int) (*models.Workspace, error)
}

// Finalization carries everything written when a submission reaches its
// terminal state.
type Finalization struct {
	Status         string
	Score          *int
	Feedback       string
	FeedbackBlocks []models.FeedbackBlock
	JudgeOutput    string
	CodeContent    *string
	CommitSHA      *string
}

const (
	finalizeAttempts = 3
	finalizeBackoff  = 500 * time.Millisecond
)

// Orchestrator drives one submission through fetch, evaluate and record.
// Each Run call is an independent state machine instance; the only shared
// state between concurrent runs is the store. A failure at any step still
// produces a terminal error record, so no submit request ever ends
// unrecorded.
type Orchestrator struct {
	subs       SubmissionStore
	users      UserSource
	problems   ProblemSource
	workspaces WorkspaceSource
	fetcher    Fetcher
	evaluator  *Evaluator

	fetchTimeout time.Duration
	evalTimeout  time.Duration
}

func NewOrchestrator(
	subs SubmissionStore,
	users UserSource,
	problems ProblemSource,
	workspaces WorkspaceSource,
	fetcher Fetcher,
	evaluator *Evaluator,
	fetchTimeout, evalTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		subs:         subs,
		users:        users,
		problems:     problems,
		workspaces:   workspaces,
		fetcher:      fetcher,
		evaluator:    evaluator,
		fetchTimeout: fetchTimeout,
		evalTimeout:  evalTimeout,
	}
}

// SolutionFilename is the well-known entry-point file the student must push
// for a given language.
func SolutionFilename(language string) string {
	switch language {
	case "go":
		return "solution.go"
	default:
		return "solution.py"
	}
}

// Run evaluates the submission with the given id. It is safe to call again
// for a redelivered job: a submission that already reached a terminal state
// is left untouched.
func (o *Orchestrator) Run(ctx context.Context, submissionID int) error {
	sub, err := o.subs.GetSubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission %d: %w", submissionID, err)
	}
	if models.Terminal(sub.Status) {
		logger.Log.Info("Submission already finalized, skipping",
			zap.Int("submission_id", submissionID),
			zap.String("status", sub.Status))
		return nil
	}

	user, err := o.users.GetUserByID(ctx, sub.UserID)
	if err != nil {
		return o.fail(ctx, sub, fmt.Errorf("failed to load user: %w", err), nil)
	}
	problem, err := o.problems.GetProblemByID(ctx, sub.ProblemID)
	if err != nil {
		return o.fail(ctx, sub, fmt.Errorf("failed to load problem: %w", err), nil)
	}

	// Fetching
	snapshot, err := o.fetch(ctx, sub, user)
	if err != nil {
		return o.fail(ctx, sub, err, nil)
	}

	// Evaluating
	testCases, err := o.problems.GetTestCases(ctx, sub.ProblemID)
	if err != nil {
		return o.fail(ctx, sub, fmt.Errorf("failed to load test cases: %w", err), snapshot)
	}

	evalCtx, cancel := context.WithTimeout(ctx, o.evalTimeout)
	defer cancel()

	language := ""
	if sub.Language != nil {
		language = *sub.Language
	}
	verdict, err := o.evaluator.Evaluate(evalCtx, EvalInput{
		Code:      snapshot.Content,
		Language:  language,
		Problem:   problem,
		TestCases: testCases,
	})
	if err != nil {
		return o.fail(ctx, sub, err, snapshot)
	}

	// Recording
	fin := Finalization{
		Status:         verdict.Status,
		Score:          verdict.Score,
		Feedback:       verdict.Feedback,
		FeedbackBlocks: verdict.Blocks,
		JudgeOutput:    verdict.JudgeOutput,
		CodeContent:    &snapshot.Content,
		CommitSHA:      &snapshot.CommitSHA,
	}
	if err := o.finalize(ctx, sub.ID, fin); err != nil {
		return err
	}

	logger.Log.Info("Submission evaluated",
		zap.Int("submission_id", sub.ID),
		zap.String("status", verdict.Status))
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, sub *models.Submission, user *models.User) (*Snapshot, error) {
	ws, err := o.workspaces.GetByUserAndProblem(ctx, sub.UserID, sub.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("%w: no workspace for this problem, start it first", ErrProvisionFailed)
	}
	if user.GithubAccessToken == nil || *user.GithubAccessToken == "" {
		return nil, ErrCredentialMissing
	}

	language := ""
	if sub.Language != nil {
		language = *sub.Language
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	snapshot, err := o.fetcher.FetchSnapshot(fetchCtx, *user.GithubAccessToken,
		user.Username, ws.RepoName, SolutionFilename(language))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrFetchTimeout, err)
		}
		return nil, err
	}
	return snapshot, nil
}

// fail records the terminal error outcome for a broken evaluation. The
// failure kind travels in the feedback text so the presentation layer can
// show it verbatim.
func (o *Orchestrator) fail(ctx context.Context, sub *models.Submission, cause error, snapshot *Snapshot) error {
	kind := FailureKind(cause)
	logger.Log.Error("Evaluation failed",
		zap.Int("submission_id", sub.ID),
		zap.String("kind", kind),
		zap.Error(cause))

	text := fmt.Sprintf("Evaluation failed (%s): %v", kind, cause)
	fin := Finalization{
		Status:         models.StatusError,
		Feedback:       text,
		FeedbackBlocks: feedback.Parse(text),
		JudgeOutput:    kind,
	}
	if snapshot != nil {
		fin.CodeContent = &snapshot.Content
		fin.CommitSHA = &snapshot.CommitSHA
	}
	return o.finalize(ctx, sub.ID, fin)
}

// finalize writes the terminal record, retrying transient store failures.
// This is the one step that must not silently drop a completed evaluation.
func (o *Orchestrator) finalize(ctx context.Context, submissionID int, fin Finalization) error {
	var err error
	backoff := finalizeBackoff
	for attempt := 1; attempt <= finalizeAttempts; attempt++ {
		err = o.subs.Finalize(ctx, submissionID, fin)
		if err == nil {
			return nil
		}
		logger.Log.Warn("Failed to record verdict, retrying",
			zap.Int("submission_id", submissionID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < finalizeAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrStoreWrite, ctx.Err())
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreWrite, err)
}
