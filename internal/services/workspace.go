package services

import (
	"context"
	"errors"
	"fmt"

	"minicode/internal/judge"
	"minicode/internal/logger"
	"minicode/internal/models"
	"minicode/internal/repositories"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const starterCode = "# Write your solution here\n\ndef solve():\n    pass\n"

// WorkspaceRepoName is the conventional repository name for a (user,
// problem) workspace.
func WorkspaceRepoName(username, problemTitle string) string {
	return fmt.Sprintf("minicode-%s-%s", username, slug.Make(problemTitle))
}

// WorkspaceService provisions per-(user, problem) GitHub workspaces.
// Provisioning is idempotent at three levels: the workspaces table hit, the
// unique (user_id, problem_id) key under concurrent inserts, and the GitHub
// name-exists response.
type WorkspaceService struct {
	workspaces repositories.WorkspaceRepository
	gh         *GithubClient
}

func NewWorkspaceService(workspaces repositories.WorkspaceRepository, gh *GithubClient) *WorkspaceService {
	return &WorkspaceService{workspaces: workspaces, gh: gh}
}

func (s *WorkspaceService) Provision(ctx context.Context, user *models.User, problem *models.Problem) (*models.Workspace, error) {
	if ws, err := s.workspaces.GetByUserAndProblem(ctx, user.ID, problem.ID); err == nil {
		return ws, nil
	}

	if user.GithubAccessToken == nil || *user.GithubAccessToken == "" {
		return nil, judge.ErrCredentialMissing
	}
	token := *user.GithubAccessToken

	repoName := WorkspaceRepoName(user.Username, problem.Title)
	description := fmt.Sprintf("Solution for %s on MiniCode", problem.Title)

	info, err := s.gh.CreateRepo(ctx, token, repoName, description)
	created := err == nil
	if errors.Is(err, errRepoExists) {
		info, err = s.gh.GetRepo(ctx, token, user.Username, repoName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", judge.ErrProvisionFailed, err)
	}

	// Seed only a repository this call created. An existing repository may
	// already hold the student's pushed solution; it is returned untouched.
	if created {
		s.seed(ctx, token, user.Username, repoName, problem)
	}

	ws, err := s.workspaces.Create(ctx, user.ID, problem.ID, repoName, info.HTMLURL)
	if err != nil {
		// A concurrent provision won the insert race; its row is the
		// workspace.
		if existing, getErr := s.workspaces.GetByUserAndProblem(ctx, user.ID, problem.ID); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", judge.ErrProvisionFailed, err)
	}
	return ws, nil
}

// seed writes the problem statement and the starter solution file into a
// fresh repository. Seeding is best effort: a half-seeded workspace is
// still usable and is never recreated.
func (s *WorkspaceService) seed(ctx context.Context, token, owner, repoName string, problem *models.Problem) {
	readme := fmt.Sprintf("# %s\n\n%s", problem.Title, problem.Description)
	if err := s.gh.PutFile(ctx, token, owner, repoName, "README.md",
		"Initialize with problem description", readme); err != nil {
		logger.Log.Warn("Failed to seed README",
			zap.String("repo", repoName),
			zap.Error(err))
	}

	if err := s.gh.PutFile(ctx, token, owner, repoName, judge.SolutionFilename("python"),
		"Add starter code", starterCode); err != nil {
		logger.Log.Warn("Failed to seed starter code",
			zap.String("repo", repoName),
			zap.Error(err))
	}
}
