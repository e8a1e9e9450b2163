package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultRecommender = "mock"
	defaultLLMModel    = "gpt-4o-mini"
	defaultSessionID   = "default"
)

type Config struct {
	Recommender     string
	LLMBaseURL      string
	LLMAPIKey       string
	LLMModel        string
	RedisAddr       string
	DBPath          string
	SessionID       string
	MovieID         string
	Resume          bool
	PrefetchTimeout time.Duration
	MetricsAddr     string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	defaultDBPath := filepath.Join(cwd, "orbit.db")

	recommender := envOrDefault("ORBIT_RECOMMENDER", defaultRecommender)
	llmBaseURL := os.Getenv("ORBIT_LLM_BASE_URL")
	llmAPIKey := envOrDefaultWithFallback([]string{"ORBIT_LLM_API_KEY", "OPENAI_API_KEY"}, "")
	llmModel := envOrDefault("ORBIT_LLM_MODEL", defaultLLMModel)
	redisAddr := os.Getenv("ORBIT_REDIS_ADDR")
	dbPath := envOrDefault("ORBIT_DB_PATH", defaultDBPath)
	metricsAddr := os.Getenv("ORBIT_METRICS_ADDR")

	prefetchTimeout := time.Duration(0)
	if v := os.Getenv("ORBIT_PREFETCH_TIMEOUT"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ORBIT_PREFETCH_TIMEOUT: %w", err)
		}
		prefetchTimeout = parsed
	}

	flagSet := flag.NewFlagSet("orbit", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagRec := flagSet.String("recommender", recommender, "recommender backend: mock|llm")
	flagDB := flagSet.String("db", dbPath, "path to SQLite database")
	flagRedis := flagSet.String("redis", redisAddr, "redis address for the shared candidate cache (empty = disabled)")
	flagSession := flagSet.String("session", defaultSessionID, "session id for saving and resuming")
	flagMovie := flagSet.String("movie", "", "entry movie id (default: first catalog movie)")
	flagResume := flagSet.Bool("resume", false, "resume the saved session instead of entering a new orbit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		Recommender:     strings.ToLower(strings.TrimSpace(*flagRec)),
		LLMBaseURL:      llmBaseURL,
		LLMAPIKey:       llmAPIKey,
		LLMModel:        llmModel,
		RedisAddr:       strings.TrimSpace(*flagRedis),
		DBPath:          resolvePath(*flagDB, cwd),
		SessionID:       strings.TrimSpace(*flagSession),
		MovieID:         strings.TrimSpace(*flagMovie),
		Resume:          *flagResume,
		PrefetchTimeout: prefetchTimeout,
		MetricsAddr:     metricsAddr,
	}

	if config.Recommender != "mock" && config.Recommender != "llm" {
		return Config{}, fmt.Errorf("unsupported recommender: %s", config.Recommender)
	}
	if config.SessionID == "" {
		return Config{}, errors.New("session id cannot be empty")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrDefaultWithFallback(keys []string, fallback string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
