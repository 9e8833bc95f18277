package handlers

import (
	"context"
	"net/http"

	"minicode/internal/logger"
	"minicode/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeaderboardHandler struct {
	leaderboard *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboard *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.leaderboard.Leaderboard(context.Background())
	if err != nil {
		logger.Log.Error("Failed to build leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"count":       len(entries),
	})
}

func (h *LeaderboardHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/leaderboard", h.GetLeaderboard)
}
