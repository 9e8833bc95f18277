package judge

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"minicode/internal/logger"
	"minicode/internal/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger()
	os.Exit(m.Run())
}

type fakeRunner struct {
	outcome *RunOutcome
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, code, language string, cases []models.TestCase) (*RunOutcome, error) {
	return f.outcome, f.err
}

type fakeGrader struct {
	result *GradeResult
	err    error
}

func (f *fakeGrader) Grade(ctx context.Context, req GradeRequest) (*GradeResult, error) {
	return f.result, f.err
}

var someCases = []models.TestCase{{ID: 1, Input: "1 2", ExpectedOutput: "3"}}

func TestEvaluateBothChecksPass(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{outcome: &RunOutcome{Passed: true, Total: 1, PassedCount: 1, Summary: "1/1 passed"}},
		&fakeGrader{result: &GradeResult{Status: "accepted", Score: 85, Feedback: "Well done."}},
		time.Second,
	)

	v, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Language: "python",
		Problem: &models.Problem{ID: 1, Title: "Sum"}, TestCases: someCases,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if v.Status != models.StatusAccepted {
		t.Errorf("status = %q, want accepted", v.Status)
	}
	if v.Score == nil || *v.Score != 85 {
		t.Errorf("score = %v, want 85", v.Score)
	}
	if v.Feedback != "Well done." {
		t.Errorf("feedback = %q", v.Feedback)
	}
}

func TestEvaluateDeterministicCheckOverridesGraderStatus(t *testing.T) {
	// The model says accepted but a test case failed: wrong_answer wins,
	// the model's score is still recorded.
	e := NewEvaluator(
		&fakeRunner{outcome: &RunOutcome{
			Passed: false, Total: 2, PassedCount: 1,
			FailedCase: &CaseResult{Input: "5", Expected: "25", Actual: "10"},
			Summary:    "1/2 passed",
		}},
		&fakeGrader{result: &GradeResult{Status: "accepted", Score: 90, Feedback: "Looks right to me."}},
		time.Second,
	)

	v, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1}, TestCases: someCases,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if v.Status != models.StatusWrongAnswer {
		t.Errorf("status = %q, want wrong_answer", v.Status)
	}
	if v.Score == nil || *v.Score != 90 {
		t.Errorf("score = %v, want 90", v.Score)
	}
}

func TestEvaluateDegradesWhenGraderUnavailable(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{outcome: &RunOutcome{Passed: true, Total: 1, PassedCount: 1, Summary: "1/1 passed"}},
		&fakeGrader{err: errors.New("connection refused")},
		time.Second,
	)

	v, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1}, TestCases: someCases,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if v.Status != models.StatusAccepted {
		t.Errorf("status = %q, want accepted", v.Status)
	}
	if v.Score != nil {
		t.Errorf("score = %v, want nil in degraded mode", *v.Score)
	}
	if !strings.Contains(v.Feedback, "deterministic test-case check alone") {
		t.Errorf("feedback missing degraded note: %q", v.Feedback)
	}
}

func TestEvaluateDegradedFailureReportsFirstCase(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{outcome: &RunOutcome{
			Passed: false, Total: 3, PassedCount: 2,
			FailedCase: &CaseResult{Input: "4", Expected: "16", Actual: "8"},
			Summary:    "2/3 passed",
		}},
		&fakeGrader{err: errors.New("503")},
		time.Second,
	)

	v, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1}, TestCases: someCases,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if v.Status != models.StatusWrongAnswer {
		t.Errorf("status = %q, want wrong_answer", v.Status)
	}
	for _, fragment := range []string{"input: 4", "expected: 16", "got: 8"} {
		if !strings.Contains(v.Feedback, fragment) {
			t.Errorf("feedback missing %q: %q", fragment, v.Feedback)
		}
	}
}

func TestEvaluateNoTestCasesUsesGraderAlone(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{err: errors.New("should not run")},
		&fakeGrader{result: &GradeResult{Status: "accepted", Score: 70, Feedback: "ok"}},
		time.Second,
	)

	v, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1}, TestCases: nil,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if v.Status != models.StatusAccepted {
		t.Errorf("status = %q, want accepted", v.Status)
	}
	if v.Score == nil || *v.Score != 70 {
		t.Errorf("score = %v, want 70", v.Score)
	}
}

func TestEvaluateNoTestCasesUnknownGraderStatusBecomesError(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{},
		&fakeGrader{result: &GradeResult{Status: "looks_great", Score: 50, Feedback: "?"}},
		time.Second,
	)

	v, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if v.Status != models.StatusError {
		t.Errorf("status = %q, want error", v.Status)
	}
}

func TestEvaluateNothingRanFails(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{},
		&fakeGrader{err: errors.New("down")},
		time.Second,
	)

	_, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1}, TestCases: nil,
	})
	if !errors.Is(err, ErrGradingUnavailable) {
		t.Fatalf("Evaluate() error = %v, want ErrGradingUnavailable", err)
	}
}

func TestEvaluateRunnerTimeout(t *testing.T) {
	e := NewEvaluator(
		&fakeRunner{err: context.DeadlineExceeded},
		&fakeGrader{},
		time.Second,
	)

	_, err := e.Evaluate(context.Background(), EvalInput{
		Code: "x", Problem: &models.Problem{ID: 1}, TestCases: someCases,
	})
	if !errors.Is(err, ErrEvaluationTimeout) {
		t.Fatalf("Evaluate() error = %v, want ErrEvaluationTimeout", err)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{180, 100},
	}
	for _, tt := range tests {
		if got := clampScore(tt.in); got != tt.want {
			t.Errorf("clampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
