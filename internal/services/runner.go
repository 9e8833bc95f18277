package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"minicode/internal/judge"
	"minicode/internal/logger"
	"minicode/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LanguageConfig struct {
	ContainerImage   string
	FileName         string
	BuildCommand     []string // Empty for interpreted languages
	RunCommand       []string
	NeedsCompilation bool
}

var languageConfigs = map[string]LanguageConfig{
	"python": {
		ContainerImage:   "python-runner",
		FileName:         "solution.py",
		BuildCommand:     []string{},
		RunCommand:       []string{"python", "solution.py"},
		NeedsCompilation: false,
	},
	"go": {
		ContainerImage:   "go-runner",
		FileName:         "solution.go",
		BuildCommand:     []string{"go", "build", "-o", "solution", "solution.go"},
		RunCommand:       []string{"./solution"},
		NeedsCompilation: true,
	},
}

// SandboxRunner implements judge.Runner by executing submitted code inside
// a locked-down container: no network, memory and CPU caps, pid limit. The
// wall clock is enforced through the context carried into every docker
// invocation. This is the only place untrusted input drives execution.
type SandboxRunner struct {
	workDir     string
	memoryLimit string
	cpuLimit    string
}

func NewSandboxRunner(workDir, memoryLimit, cpuLimit string) (*SandboxRunner, error) {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	return &SandboxRunner{
		workDir:     workDir,
		memoryLimit: memoryLimit,
		cpuLimit:    cpuLimit,
	}, nil
}

func (s *SandboxRunner) Run(ctx context.Context, code, language string, cases []models.TestCase) (*judge.RunOutcome, error) {
	langConfig, ok := languageConfigs[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", language)
	}

	execDir := filepath.Join(s.workDir, "run-"+uuid.NewString())
	if err := os.MkdirAll(execDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create execution directory: %w", err)
	}
	defer os.RemoveAll(execDir)

	codeFilePath := filepath.Join(execDir, langConfig.FileName)
	if err := os.WriteFile(codeFilePath, []byte(code), 0644); err != nil {
		return nil, fmt.Errorf("failed to write code file: %w", err)
	}

	containerID, err := s.startContainer(ctx, codeFilePath, langConfig)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", judge.ErrEvaluationTimeout, ctx.Err())
		}
		return nil, err
	}
	defer exec.Command("docker", "stop", containerID).Run()

	outcome := &judge.RunOutcome{Total: len(cases)}

	for _, tc := range cases {
		actual, runErr := s.executeTestCase(ctx, containerID, langConfig, tc)
		if runErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", judge.ErrEvaluationTimeout, ctx.Err())
			}
			outcome.FailedCase = &judge.CaseResult{
				TestCaseID: tc.ID,
				Input:      tc.Input,
				Expected:   tc.ExpectedOutput,
				Actual:     runErr.Error(),
			}
			outcome.Summary = fmt.Sprintf("Runtime failure on test case %d: %v", tc.ID, runErr)
			return outcome, nil
		}

		expected := trimOutput(tc.ExpectedOutput)
		if trimOutput(actual) != expected {
			outcome.FailedCase = &judge.CaseResult{
				TestCaseID: tc.ID,
				Input:      tc.Input,
				Expected:   expected,
				Actual:     trimOutput(actual),
			}
			outcome.Summary = fmt.Sprintf("Failed test case %d: expected %q, got %q",
				tc.ID, expected, trimOutput(actual))
			return outcome, nil
		}
		outcome.PassedCount++
	}

	outcome.Passed = true
	outcome.Summary = fmt.Sprintf("All %d test cases passed.", outcome.Total)
	return outcome, nil
}

// trimOutput compares outputs the way the judge promises: trailing
// whitespace per line and around the whole output is insignificant.
func trimOutput(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

func (s *SandboxRunner) startContainer(ctx context.Context, codePath string, langConfig LanguageConfig) (string, error) {
	absCodePath, err := filepath.Abs(codePath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	cmd := exec.CommandContext(ctx,
		"docker", "run", "-d", "--rm",
		"--network", "none",
		"--memory", s.memoryLimit,
		"--cpus", s.cpuLimit,
		"--pids-limit", "64",
		"-v", fmt.Sprintf("%s:/app/%s:ro", absCodePath, langConfig.FileName),
		"-w", "/app",
		langConfig.ContainerImage,
		"tail", "-f", "/dev/null",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("container start error: %v, output: %s", err, output)
	}
	containerID := strings.TrimSpace(string(output))

	if langConfig.NeedsCompilation && len(langConfig.BuildCommand) > 0 {
		compileArgs := append([]string{"exec", containerID}, langConfig.BuildCommand...)
		compileCmd := exec.CommandContext(ctx, "docker", compileArgs...)

		compileOutput, err := compileCmd.CombinedOutput()
		if err != nil {
			exec.Command("docker", "stop", containerID).Run()
			return "", fmt.Errorf("compilation error: %v, output: %s", err, compileOutput)
		}
	}

	return containerID, nil
}

func (s *SandboxRunner) executeTestCase(ctx context.Context, containerID string, langConfig LanguageConfig, tc models.TestCase) (string, error) {
	args := append([]string{"exec", "-i", containerID}, langConfig.RunCommand...)
	cmd := exec.CommandContext(ctx, "docker", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(tc.Input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Log.Debug("Executing test case",
		zap.Int("testcase_id", tc.ID),
		zap.String("container_id", containerID))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.New(strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
