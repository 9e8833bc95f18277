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

const degradedNote = "Note: the grading service could not be reached, so this verdict " +
	"comes from the deterministic test-case check alone. No quality score was assigned."

// Evaluator composes the deterministic test-case check with the qualitative
// grading-model review. The deterministic check is authoritative for
// failure: a test-case mismatch is wrong_answer no matter what the model
// scores. The qualitative check is best effort; when it cannot run the
// verdict degrades to deterministic-only and the score stays nil.
type Evaluator struct {
	runner       Runner
	grader       Grader
	gradeTimeout time.Duration
}

func NewEvaluator(runner Runner, grader Grader, gradeTimeout time.Duration) *Evaluator {
	return &Evaluator{
		runner:       runner,
		grader:       grader,
		gradeTimeout: gradeTimeout,
	}
}

type EvalInput struct {
	Code      string
	Language  string
	Problem   *models.Problem
	TestCases []models.TestCase
}

func (e *Evaluator) Evaluate(ctx context.Context, in EvalInput) (*Verdict, error) {
	var outcome *RunOutcome
	if len(in.TestCases) > 0 {
		var err error
		outcome, err = e.runner.Run(ctx, in.Code, in.Language, in.TestCases)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEvaluationTimeout) {
				return nil, fmt.Errorf("%w: %v", ErrEvaluationTimeout, err)
			}
			return nil, err
		}
	}

	gradeCtx, cancel := context.WithTimeout(ctx, e.gradeTimeout)
	defer cancel()

	grade, gradeErr := e.grader.Grade(gradeCtx, GradeRequest{
		Code:        in.Code,
		Language:    in.Language,
		Title:       in.Problem.Title,
		Description: in.Problem.Description,
		TestCases:   in.TestCases,
	})
	if gradeErr != nil {
		logger.Log.Warn("Qualitative check degraded",
			zap.Int("problem_id", in.Problem.ID),
			zap.Error(gradeErr))
	}

	return compose(outcome, grade, gradeErr)
}

// compose merges the two checks into one verdict.
func compose(outcome *RunOutcome, grade *GradeResult, gradeErr error) (*Verdict, error) {
	v := &Verdict{}

	switch {
	case outcome != nil && grade != nil:
		v.Status = deterministicStatus(outcome)
		score := clampScore(grade.Score)
		v.Score = &score
		v.Feedback = grade.Feedback
		v.JudgeOutput = outcome.Summary
	case outcome != nil:
		v.Status = deterministicStatus(outcome)
		v.Feedback = degradedNote
		if outcome.FailedCase != nil {
			v.Feedback = fmt.Sprintf("%s\n\nFirst failing test case:\n- input: %s\n- expected: %s\n- got: %s",
				degradedNote, outcome.FailedCase.Input, outcome.FailedCase.Expected, outcome.FailedCase.Actual)
		}
		v.JudgeOutput = outcome.Summary
	case grade != nil:
		// No test cases on the problem: the model's verdict stands alone.
		v.Status = normalizeStatus(grade.Status)
		score := clampScore(grade.Score)
		v.Score = &score
		v.Feedback = grade.Feedback
		v.JudgeOutput = "No test cases defined; qualitative review only."
	default:
		// Nothing ran at all.
		return nil, fmt.Errorf("%w: %v", ErrGradingUnavailable, gradeErr)
	}

	v.Blocks = feedback.Parse(v.Feedback)
	return v, nil
}

func deterministicStatus(outcome *RunOutcome) string {
	if outcome.Passed {
		return models.StatusAccepted
	}
	return models.StatusWrongAnswer
}

func normalizeStatus(status string) string {
	switch status {
	case models.StatusAccepted, models.StatusWrongAnswer, models.StatusError:
		return status
	default:
		return models.StatusError
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
