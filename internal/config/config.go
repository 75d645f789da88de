package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wilayasapi/internal/logging"
)

type Config struct {
	Port string
	// DatabaseURL switches reference data to Postgres when set.
	DatabaseURL string
	// DataDir overrides the embedded JSON reference documents.
	DataDir string
	// RulesPath overrides the embedded rule document.
	RulesPath      string
	AllowedOrigins []string
	// RateLimitRequests per RateLimitWindow per client.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	BodyLimitBytes    int64
	Currency          string
	Log               logging.Config
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              port,
		DataDir:           os.Getenv("DATA_DIR"),
		RulesPath:         os.Getenv("RULES_PATH"),
		AllowedOrigins:    splitList(getEnv("ALLOWED_ORIGINS", "*")),
		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		BodyLimitBytes:    int64(getInt("BODY_LIMIT_BYTES", 10<<20)),
		Currency:          getEnv("CURRENCY", "DA"),
		Log:               logConfig(),
	}
}

func logConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = getEnv("LOG_LEVEL", cfg.Level)
	cfg.Format = getEnv("LOG_FORMAT", cfg.Format)
	cfg.Development = getEnv("APP_ENV", "") == "development"
	return cfg
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
