package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type EngineConfig struct {
	SessionTokenBudget  int
	SessionMaxTurns     int
	SessionIdleTTL      time.Duration
	SessionCap          int
	AnswerCacheTTL      time.Duration
	RouteMemoryTTL      time.Duration
	ConfidenceThreshold float64
	FastQuality         float64
	SynthesisMaxTokens  int
	UseRedisAnswers     bool
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	GeminiAPIKey      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Engine: EngineConfig{
			SessionTokenBudget:  getEnvAsInt("SESSION_TOKEN_BUDGET", 60000),
			SessionMaxTurns:     getEnvAsInt("SESSION_MAX_TURNS", 25),
			SessionIdleTTL:      getEnvAsDuration("SESSION_IDLE_TTL", time.Hour),
			SessionCap:          getEnvAsInt("SESSION_CAP", 500),
			AnswerCacheTTL:      getEnvAsDuration("ANSWER_CACHE_TTL", 15*time.Minute),
			RouteMemoryTTL:      getEnvAsDuration("ROUTE_MEMORY_TTL", 24*time.Hour),
			ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.6),
			FastQuality:         getEnvAsFloat("FAST_PATH_QUALITY", 0.9),
			SynthesisMaxTokens:  getEnvAsInt("SYNTHESIS_MAX_TOKENS", 1024),
			UseRedisAnswers:     getEnv("ANSWER_CACHE_BACKEND", "memory") == "redis",
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
