package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	NumberOfWorkers int
	CORSOrigins     string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	GithubClientID     string
	GithubClientSecret string

	GeminiAPIKey string
	GeminiModel  string

	FetchTimeout    time.Duration
	EvaluateTimeout time.Duration

	SandboxWorkDir     string
	SandboxMemoryLimit string
	SandboxCPULimit    string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8000"),
		NumberOfWorkers: getEnvAsInt("NUM_OF_WORKERS", 4),
		CORSOrigins:     getEnv("CORS_ORIGINS", "*"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "minicode"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "devsecret"),

		GithubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GithubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		FetchTimeout:    time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		EvaluateTimeout: time.Duration(getEnvAsInt("EVALUATE_TIMEOUT_SECONDS", 30)) * time.Second,

		SandboxWorkDir:     getEnv("SANDBOX_WORK_DIR", "/tmp/minicode-eval"),
		SandboxMemoryLimit: getEnv("SANDBOX_MEMORY_LIMIT", "256m"),
		SandboxCPULimit:    getEnv("SANDBOX_CPU_LIMIT", "1"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
