package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"minicode/internal/judge"
	"minicode/internal/logger"
	"minicode/internal/middlewares"
	"minicode/internal/models"
	"minicode/internal/repositories"
	"minicode/internal/services"
	"minicode/internal/workerpool"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const verdictPollInterval = 300 * time.Millisecond

type SubmissionHandler struct {
	userRepo      repositories.UserRepository
	problemRepo   repositories.ProblemRepository
	subRepo       repositories.SubmissionRepository
	workspaceRepo repositories.WorkspaceRepository
	workspaces    *services.WorkspaceService
	redis         *redis.Client

	// How long the submit call waits for the verdict before handing the
	// caller a still-pending submission. Evaluation keeps running either
	// way; the record always lands.
	verdictWait time.Duration
}

func NewSubmissionHandler(
	userRepo repositories.UserRepository,
	problemRepo repositories.ProblemRepository,
	subRepo repositories.SubmissionRepository,
	workspaceRepo repositories.WorkspaceRepository,
	workspaces *services.WorkspaceService,
	rdb *redis.Client,
	verdictWait time.Duration,
) *SubmissionHandler {
	return &SubmissionHandler{
		userRepo:      userRepo,
		problemRepo:   problemRepo,
		subRepo:       subRepo,
		workspaceRepo: workspaceRepo,
		workspaces:    workspaces,
		redis:         rdb,
		verdictWait:   verdictWait,
	}
}

// StartProblem provisions (or returns) the caller's workspace repository
// for a problem.
func (h *SubmissionHandler) StartProblem(c *gin.Context) {
	problemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	ctx := context.Background()
	problem, err := h.problemRepo.GetProblemByID(ctx, problemID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	user, err := h.userRepo.GetUserByID(ctx, middlewares.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	ws, err := h.workspaces.Provision(ctx, user, problem)
	if err != nil {
		switch {
		case errors.Is(err, judge.ErrCredentialMissing):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Connect your GitHub account before starting a problem"})
		case errors.Is(err, judge.ErrProvisionFailed):
			logger.Log.Error("Workspace provisioning failed",
				zap.Int("user_id", user.ID),
				zap.Int("problem_id", problemID),
				zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not create the workspace repository, try again"})
		default:
			logger.Log.Error("Workspace provisioning failed",
				zap.Int("user_id", user.ID),
				zap.Int("problem_id", problemID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start problem"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"repo_url": ws.RepoURL})
}

// SubmitProblem records a fresh submission, queues it for evaluation and
// waits (bounded) for the verdict.
func (h *SubmissionHandler) SubmitProblem(c *gin.Context) {
	problemID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := context.Background()
	if _, err := h.problemRepo.GetProblemByID(ctx, problemID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	userID := middlewares.CurrentUserID(c)
	submission := models.Submission{
		UserID:    userID,
		ProblemID: problemID,
		Language:  &req.Language,
	}
	if ws, err := h.workspaceRepo.GetByUserAndProblem(ctx, userID, problemID); err == nil {
		submission.WorkspaceID = &ws.ID
		submission.RepoURL = &ws.RepoURL
	}

	if err := h.subRepo.CreateSubmission(ctx, &submission); err != nil {
		logger.Log.Error("Failed to create submission", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process submission"})
		return
	}

	if err := workerpool.Enqueue(ctx, h.redis, submission.ID); err != nil {
		logger.Log.Error("Failed to queue submission",
			zap.Int("submission_id", submission.ID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue submission"})
		return
	}

	final := h.waitForVerdict(ctx, submission.ID)
	if final == nil {
		submission.Status = models.StatusPending
		final = &submission
	}
	c.JSON(http.StatusOK, submissionResponse(final))
}

// GetUserSubmissions returns the caller's submission history for a
// problem, newest first.
func (h *SubmissionHandler) GetUserSubmissions(c *gin.Context) {
	problemIDStr := c.Query("problem_id")
	if problemIDStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "problem_id query parameter is required"})
		return
	}
	problemID, err := strconv.Atoi(problemIDStr)
	if err != nil || problemID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	items, err := h.subRepo.GetSubmissionsByUserAndProblem(context.Background(),
		middlewares.CurrentUserID(c), problemID)
	if err != nil {
		logger.Log.Error("Failed to get user submissions",
			zap.Int("problem_id", problemID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve submission history"})
		return
	}

	for i := range items {
		items[i].FormattedTime = items[i].SubmittedAt.Format("Jan 2, 2006 at 3:04 PM")
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": items,
		"count":       len(items),
	})
}

// waitForVerdict polls until the submission reaches a terminal state or
// the wait budget runs out. A timeout here is not a failure: the worker
// finishes and records the verdict regardless, and history serves it.
func (h *SubmissionHandler) waitForVerdict(ctx context.Context, submissionID int) *models.Submission {
	deadline := time.Now().Add(h.verdictWait)
	var last *models.Submission
	for {
		sub, err := h.subRepo.GetSubmission(ctx, submissionID)
		if err == nil {
			last = sub
			if models.Terminal(sub.Status) {
				return sub
			}
		}
		if time.Now().After(deadline) {
			return last
		}
		time.Sleep(verdictPollInterval)
	}
}

func submissionResponse(sub *models.Submission) gin.H {
	resp := gin.H{
		"id":           sub.ID,
		"status":       sub.Status,
		"score":        sub.Score,
		"ai_feedback":  sub.AIFeedback,
		"judge_output": sub.JudgeOutput,
		"code_content": sub.CodeContent,
		"repo_url":     sub.RepoURL,
	}
	if sub.FeedbackBlocks != nil {
		var blocks []models.FeedbackBlock
		if err := json.Unmarshal([]byte(*sub.FeedbackBlocks), &blocks); err == nil {
			resp["feedback_blocks"] = blocks
		}
	}
	return resp
}

func (h *SubmissionHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	problemGroup := router.Group("/problems")
	{
		problemGroup.POST("/:id/start", auth, h.StartProblem)
		problemGroup.POST("/:id/submit", auth, h.SubmitProblem)
	}
	router.GET("/submissions", auth, h.GetUserSubmissions)
}
