package handlers

import (
	"context"
	"net/http"
	"strconv"

	"minicode/internal/authz"
	"minicode/internal/logger"
	"minicode/internal/middlewares"
	"minicode/internal/models"
	"minicode/internal/repositories"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FacultyHandler struct {
	problemRepo repositories.ProblemRepository
	subRepo     repositories.SubmissionRepository
}

func NewFacultyHandler(problemRepo repositories.ProblemRepository, subRepo repositories.SubmissionRepository) *FacultyHandler {
	return &FacultyHandler{problemRepo: problemRepo, subRepo: subRepo}
}

// GetOwnProblems lists the problems authored by the caller. Admins see
// every problem.
func (h *FacultyHandler) GetOwnProblems(c *gin.Context) {
	ctx := context.Background()
	actor := authz.Actor{ID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}

	if actor.Role == models.RoleAdmin {
		problems, err := h.problemRepo.GetProblems(ctx)
		if err != nil {
			logger.Log.Error("Failed to list problems", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve problems"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"problems": problems, "count": len(problems)})
		return
	}

	problems, err := h.problemRepo.GetProblemsByAuthor(ctx, actor.ID)
	if err != nil {
		logger.Log.Error("Failed to list authored problems", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve problems"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"problems": problems, "count": len(problems)})
}

// GetProblemAnalytics aggregates submission statistics for one problem.
// Faculty only see analytics for problems they authored.
func (h *FacultyHandler) GetProblemAnalytics(c *gin.Context) {
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

	actor := authz.Actor{ID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}
	if !authz.Can(actor, authz.ActionViewAnalytics, ownerResource(problem)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only view analytics for your own problems"})
		return
	}

	analytics, err := h.subRepo.GetProblemAnalytics(ctx, problemID)
	if err != nil {
		logger.Log.Error("Failed to compute problem analytics",
			zap.Int("problem_id", problemID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics"})
		return
	}
	analytics.ProblemTitle = problem.Title

	c.JSON(http.StatusOK, analytics)
}

func (h *FacultyHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	facultyGroup := router.Group("/faculty", auth, middlewares.RequireRole(models.RoleFaculty, models.RoleAdmin))
	{
		facultyGroup.GET("/problems", h.GetOwnProblems)
		facultyGroup.GET("/analytics/:id", h.GetProblemAnalytics)
	}
}
