package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
	"github.com/Divas-Gupta30/ayurwell/internal/llm"
	"github.com/Divas-Gupta30/ayurwell/internal/processing"
	"github.com/Divas-Gupta30/ayurwell/internal/storage"
	"github.com/Divas-Gupta30/ayurwell/internal/websearch"
)

type Config struct {
	Port     string
	LogLevel string

	DatabaseURL string
	VectorTable string
	HistorySize int

	Embedding processing.Config
	LLM       llm.Config
	WebSearch websearch.Config
	Redis     websearch.RedisConfig
	CacheTTL  time.Duration

	Sources           graph.SourcesConfig
	GraderConcurrency int
	GenerationTimeout time.Duration
}

// LoadDotEnv loads .env files if present. Variables already set win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads the configuration from the environment. Malformed values fall
// back to their defaults and are reported through logger.
func Load(logger *zap.Logger) *Config {
	e := env{logger: logger}
	googleKey := getEnv("GOOGLE_API_KEY", "")

	sources := graph.DefaultSourcesConfig()
	sources.TopK = e.int("VECTOR_TOP_K", sources.TopK)
	sources.Timeout = e.duration("RETRIEVAL_TIMEOUT", sources.Timeout)
	sources.WebRetries = uint(max(e.int("WEB_SEARCH_RETRIES", int(sources.WebRetries)), 0))

	return &Config{
		Port:     getEnv("PORT", "8182"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", storage.DefaultDatabaseURL),
		VectorTable: getEnv("VECTOR_TABLE", storage.DefaultTable),
		HistorySize: e.int("HISTORY_SIZE", 20),

		Embedding: processing.Config{
			Provider:     getEnv("EMBEDDING_PROVIDER", "ollama"),
			Model:        getEnv("EMBEDDING_MODEL", ""),
			Dim:          e.int("EMBEDDING_DIM", processing.DefaultEmbeddingDim),
			OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
			GoogleAPIKey: googleKey,
		},
		LLM: llm.Config{
			Provider:     getEnv("LLM_PROVIDER", "gemini"),
			Model:        getEnv("LLM_MODEL", "gemini-2.0-flash-001"),
			Temperature:  float32(e.float("LLM_TEMPERATURE", 0.3)),
			MaxTokens:    e.int("LLM_MAX_TOKENS", 1024),
			GoogleAPIKey: googleKey,
			OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		},
		WebSearch: websearch.Config{
			Provider:     getEnv("WEB_SEARCH_PROVIDER", "tavily"),
			TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),
			GoogleAPIKey: getEnv("GOOGLE_CSE_API_KEY", googleKey),
			GoogleCSEID:  getEnv("GOOGLE_CSE_ID", ""),
		},
		Redis: websearch.RedisConfig{
			Addr:     getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       e.int("REDIS_DB", 0),
		},
		CacheTTL: e.duration("SEARCH_CACHE_TTL", 10*time.Minute),

		Sources:           sources,
		GraderConcurrency: e.int("GRADER_CONCURRENCY", 4),
		GenerationTimeout: e.duration("GENERATION_TIMEOUT", 60*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

type env struct {
	logger *zap.Logger
}

func (e env) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.logger.Warn("invalid integer, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", def))
		return def
	}
	return n
}

func (e env) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.logger.Warn("invalid number, using default", zap.String("key", key), zap.String("value", v), zap.Float64("default", def))
		return def
	}
	return f
}

func (e env) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.logger.Warn("invalid duration, using default", zap.String("key", key), zap.String("value", v), zap.Duration("default", def))
		return def
	}
	return d
}
