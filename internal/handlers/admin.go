package handlers

import (
	"context"
	"net/http"
	"strconv"

	"minicode/internal/logger"
	"minicode/internal/middlewares"
	"minicode/internal/models"
	"minicode/internal/repositories"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	userRepo repositories.UserRepository
}

func NewAdminHandler(userRepo repositories.UserRepository) *AdminHandler {
	return &AdminHandler{userRepo: userRepo}
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(context.Background())
	if err != nil {
		logger.Log.Error("Failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{
			"id":         u.ID,
			"username":   u.Username,
			"full_name":  u.FullName,
			"role":       u.Role,
			"avatar_url": u.AvatarURL,
			"joined":     u.CreatedAt.Format("2006-01-02"),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"users": out,
		"count": len(out),
	})
}

func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	role := c.Query("role")
	if !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be one of student, faculty, admin"})
		return
	}

	ctx := context.Background()
	user, err := h.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.userRepo.UpdateRole(ctx, userID, role); err != nil {
		logger.Log.Error("Failed to update user role",
			zap.Int("user_id", userID),
			zap.String("role", role),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Role updated",
		"username": user.Username,
		"role":     role,
	})
}

func (h *AdminHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	adminGroup := router.Group("/admin", auth, middlewares.RequireRole(models.RoleAdmin))
	{
		adminGroup.GET("/users", h.GetUsers)
		adminGroup.PUT("/users/:id/role", h.UpdateUserRole)
	}
}
