package handlers

import (
	"context"
	"fmt"
	"net/http"

	"minicode/internal/logger"
	"minicode/internal/middlewares"
	"minicode/internal/models"
	"minicode/internal/repositories"
	"minicode/internal/services"
	"minicode/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	userRepo     repositories.UserRepository
	subRepo      repositories.SubmissionRepository
	problemRepo  repositories.ProblemRepository
	tokenService *services.TokenService
	gh           *services.GithubClient
	leaderboard  *services.LeaderboardService
}

func NewAuthHandler(
	userRepo repositories.UserRepository,
	subRepo repositories.SubmissionRepository,
	problemRepo repositories.ProblemRepository,
	tokenService *services.TokenService,
	gh *services.GithubClient,
	leaderboard *services.LeaderboardService,
) *AuthHandler {
	return &AuthHandler{
		userRepo:     userRepo,
		subRepo:      subRepo,
		problemRepo:  problemRepo,
		tokenService: tokenService,
		gh:           gh,
		leaderboard:  leaderboard,
	}
}

// GithubCallback exchanges the OAuth authorization code for a GitHub access
// token, creates or refreshes the user, and issues the API's own bearer
// token. The GitHub token is kept server side for workspace provisioning.
func (h *AuthHandler) GithubCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No code provided"})
		return
	}

	ctx := context.Background()
	accessToken, err := h.gh.ExchangeOAuthCode(ctx, code, c.Query("redirect_uri"))
	if err != nil {
		logger.Log.Error("GitHub OAuth exchange failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ghUser, err := h.gh.GetUser(ctx, accessToken)
	if err != nil {
		logger.Log.Error("Failed to fetch GitHub profile", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get user info"})
		return
	}

	email := ghUser.Login + "@github.com"
	if ghUser.Email != nil && *ghUser.Email != "" {
		email = *ghUser.Email
	}
	user, err := h.userRepo.UpsertGithubUser(ctx, &models.User{
		Username:          ghUser.Login,
		Email:             email,
		FullName:          ghUser.Name,
		AvatarURL:         ghUser.AvatarURL,
		GithubID:          &ghUser.ID,
		GithubAccessToken: &accessToken,
	})
	if err != nil {
		logger.Log.Error("Failed to upsert user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save user"})
		return
	}

	token, err := h.tokenService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		logger.Log.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetUserByUsername(context.Background(), req.Username)
	if err != nil || user.PasswordHash == nil || !utils.CheckPasswordHash(req.Password, *user.PasswordHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect username or password"})
		return
	}

	token, err := h.tokenService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		logger.Log.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Me returns the caller's profile with solve stats and recent submissions.
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := context.Background()
	user, err := h.userRepo.GetUserByID(ctx, middlewares.CurrentUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	submissions, err := h.subRepo.GetSubmissionsByUser(ctx, user.ID)
	if err != nil {
		logger.Log.Error("Failed to get user submissions",
			zap.Int("user_id", user.ID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	bestScores := make(map[int]int)
	for _, sub := range submissions {
		if sub.Status != models.StatusAccepted {
			continue
		}
		score := 0
		if sub.Score != nil {
			score = *sub.Score
		}
		if best, ok := bestScores[sub.ProblemID]; !ok || score > best {
			bestScores[sub.ProblemID] = score
		}
	}
	totalScore := 0
	for _, score := range bestScores {
		totalScore += score
	}

	rank := 0
	if entries, err := h.leaderboard.Leaderboard(ctx); err == nil {
		for _, entry := range entries {
			if entry.ID == user.ID {
				rank = entry.Rank
				break
			}
		}
	}

	recent := make([]models.RecentSubmission, 0, 5)
	for _, sub := range submissions {
		if len(recent) == 5 {
			break
		}
		title := fmt.Sprintf("Problem %d", sub.ProblemID)
		if problem, err := h.problemRepo.GetProblemByID(ctx, sub.ProblemID); err == nil {
			title = problem.Title
		}
		recent = append(recent, models.RecentSubmission{
			ID:      sub.ID,
			Problem: title,
			Status:  sub.Status,
			Time:    sub.SubmittedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"full_name":  user.FullName,
		"avatar_url": user.AvatarURL,
		"role":       user.Role,
		"github_id":  user.GithubID,
		"created_at": user.CreatedAt.Format("2006-01-02"),
		"stats": models.UserStats{
			Solved: len(bestScores),
			Rank:   rank,
			XP:     totalScore,
			Streak: 1,
		},
		"recentSubmissions": recent,
	})
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.GET("/github/callback", h.GithubCallback)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/me", auth, h.Me)
	}
}
