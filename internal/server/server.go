package server

import (
	"minicode/configs"
	"minicode/internal/dbs"
	"minicode/internal/handlers"
	"minicode/internal/judge"
	"minicode/internal/logger"
	"minicode/internal/middlewares"
	"minicode/internal/repositories"
	"minicode/internal/services"
	"minicode/internal/workerpool"

	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func StartGinServer() {
	logger.InitLogger()
	defer logger.SyncLogger()

	config := configs.LoadConfig()

	db, err := dbs.Init(config)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := dbs.InitRedis(ctx, config); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer dbs.CloseRedis()

	userRepo := repositories.NewUserRepository(db)
	problemRepo := repositories.NewProblemRepository(db)
	workspaceRepo := repositories.NewWorkspaceRepository(db)
	subRepo := repositories.NewSubmissionRepository(db)

	gh := services.NewGithubClient(config.GithubClientID, config.GithubClientSecret)
	workspaceService := services.NewWorkspaceService(workspaceRepo, gh)
	tokenService := services.NewTokenService(config.JWTSecret)
	leaderboard := services.NewLeaderboardService(subRepo, services.NewRedisCache(dbs.RedisClient))

	runner, err := services.NewSandboxRunner(config.SandboxWorkDir, config.SandboxMemoryLimit, config.SandboxCPULimit)
	if err != nil {
		log.Fatalf("Failed to initialize sandbox runner: %v", err)
	}
	grader := services.NewGeminiGrader(config.GeminiAPIKey, config.GeminiModel)
	evaluator := judge.NewEvaluator(runner, grader, config.EvaluateTimeout)
	orchestrator := judge.NewOrchestrator(subRepo, userRepo, problemRepo, workspaceRepo,
		gh, evaluator, config.FetchTimeout, config.EvaluateTimeout)

	pool := workerpool.NewWorkerPool(config.NumberOfWorkers, dbs.RedisClient,
		workerpool.SubmissionStream, workerpool.ConsumerGroup, orchestrator)
	if err := pool.Start(ctx); err != nil {
		logger.Log.Error("Failed starting worker pool")
		log.Fatalf("failed to start worker pool: %v", err)
	}

	router := gin.New()
	router.Use(middlewares.ErrorHandlerMiddleware())
	router.Use(cors.New(corsConfig(config.CORSOrigins)))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Welcome to MiniCode"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := middlewares.AuthMiddleware(tokenService)

	// Waiting for a verdict covers a fetch plus an evaluation plus slack;
	// past that the submit call returns the pending record and history
	// picks up the verdict later.
	verdictWait := config.FetchTimeout + config.EvaluateTimeout + 10*time.Second

	handlers.NewAuthHandler(userRepo, subRepo, problemRepo, tokenService, gh, leaderboard).
		RegisterRoutes(router, auth)
	handlers.NewProblemHandler(problemRepo).RegisterRoutes(router, auth)
	handlers.NewSubmissionHandler(userRepo, problemRepo, subRepo, workspaceRepo,
		workspaceService, dbs.RedisClient, verdictWait).RegisterRoutes(router, auth)
	handlers.NewLeaderboardHandler(leaderboard).RegisterRoutes(router)
	handlers.NewFacultyHandler(problemRepo, subRepo).RegisterRoutes(router, auth)
	handlers.NewAdminHandler(userRepo).RegisterRoutes(router, auth)

	port := ":" + config.ServerPort
	log.Printf("Starting server on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func corsConfig(origins string) cors.Config {
	cfg := cors.DefaultConfig()
	if origins == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(origins, ",")
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cfg
}
