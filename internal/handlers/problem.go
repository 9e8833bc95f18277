package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"minicode/internal/authz"
	"minicode/internal/logger"
	"minicode/internal/middlewares"
	"minicode/internal/models"
	"minicode/internal/repositories"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProblemHandler struct {
	problemRepo repositories.ProblemRepository
}

// NewProblemHandler creates a new problem handler
func NewProblemHandler(problemRepo repositories.ProblemRepository) *ProblemHandler {
	return &ProblemHandler{
		problemRepo: problemRepo,
	}
}

// GetProblems returns a list of all problems with minimal information
func (h *ProblemHandler) GetProblems(c *gin.Context) {
	problems, err := h.problemRepo.GetProblems(context.Background())
	if err != nil {
		logger.Log.Error("Failed to get problems", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve problems"})
		return
	}

	c.JSON(http.StatusOK, problems)
}

// GetProblemByID returns detailed information about a specific problem
func (h *ProblemHandler) GetProblemByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	problem, err := h.problemRepo.GetProblemByID(context.Background(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
			return
		}
		logger.Log.Error("Failed to get problem",
			zap.Int("problem_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve problem details"})
		return
	}

	c.JSON(http.StatusOK, problem)
}

// GetTestCases returns the sample test cases shown on the problem page.
func (h *ProblemHandler) GetTestCases(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	cases, err := h.problemRepo.GetSampleTestCases(context.Background(), id)
	if err != nil {
		logger.Log.Error("Failed to get test cases",
			zap.Int("problem_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve test cases"})
		return
	}

	out := make([]gin.H, 0, len(cases))
	for _, tc := range cases {
		out = append(out, gin.H{
			"id":              tc.ID,
			"input":           tc.Input,
			"expected_output": tc.ExpectedOutput,
		})
	}
	c.JSON(http.StatusOK, out)
}

// CreateProblem adds a new problem owned by the calling faculty member.
func (h *ProblemHandler) CreateProblem(c *gin.Context) {
	actor := authz.Actor{ID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}
	if !authz.Can(actor, authz.ActionCreateProblem, authz.Resource{}) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}

	var req models.CreateProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	problem := &models.Problem{
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		AuthorID:    &actor.ID,
	}
	if err := h.problemRepo.CreateProblem(context.Background(), problem); err != nil {
		logger.Log.Error("Failed to create problem", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create problem"})
		return
	}

	c.JSON(http.StatusCreated, problem)
}

// AddTestCases attaches test cases to an existing problem. Problem creation
// and test-case entry are an explicit two-step flow.
func (h *ProblemHandler) AddTestCases(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	problem, err := h.problemRepo.GetProblemByID(context.Background(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	actor := authz.Actor{ID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}
	if !authz.Can(actor, authz.ActionAddTestCases, ownerResource(problem)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}

	var req models.AddTestCasesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cases := make([]models.TestCase, 0, len(req.TestCases))
	for _, tc := range req.TestCases {
		cases = append(cases, models.TestCase{
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			IsSample:       tc.IsSample,
		})
	}
	if err := h.problemRepo.AddTestCases(context.Background(), id, cases); err != nil {
		logger.Log.Error("Failed to add test cases",
			zap.Int("problem_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add test cases"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"added": len(cases)})
}

// DeleteProblem removes a problem; only its owner or an admin may.
func (h *ProblemHandler) DeleteProblem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid problem ID"})
		return
	}

	problem, err := h.problemRepo.GetProblemByID(context.Background(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Problem not found"})
		return
	}

	actor := authz.Actor{ID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}
	if !authz.Can(actor, authz.ActionDeleteProblem, ownerResource(problem)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}

	if err := h.problemRepo.DeleteProblem(context.Background(), id); err != nil {
		logger.Log.Error("Failed to delete problem",
			zap.Int("problem_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete problem"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Problem deleted"})
}

func ownerResource(problem *models.Problem) authz.Resource {
	if problem.AuthorID == nil {
		return authz.Resource{}
	}
	return authz.Resource{OwnerID: *problem.AuthorID}
}

// RegisterRoutes registers the problem handler routes
func (h *ProblemHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	problemGroup := router.Group("/problems")
	{
		problemGroup.GET("", h.GetProblems)
		problemGroup.GET("/:id", h.GetProblemByID)
		problemGroup.GET("/:id/testcases", h.GetTestCases)
		problemGroup.POST("", auth, h.CreateProblem)
		problemGroup.POST("/:id/testcases", auth, h.AddTestCases)
		problemGroup.DELETE("/:id", auth, h.DeleteProblem)
	}
}
