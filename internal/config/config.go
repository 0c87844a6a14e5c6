// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultOpenWeatherMapBaseURL はOpenWeatherMap 2.5 APIのベースURL。
const defaultOpenWeatherMapBaseURL = "https://api.openweathermap.org/data/2.5"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge int
	BcryptCost    int

	// Weather provider
	WeatherAPIKey          string
	WeatherBaseURL         string
	WeatherLang            string
	ForecastDays           int
	UpstreamTimeout        time.Duration
	UpstreamRPS            float64
	UpstreamBurst          int
	UpstreamMaxRetries     int
	UpstreamInitialBackoff time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitWrite   int

	// Evaluator
	EvaluatorEnabled       bool
	EvaluatorSchedule      string
	EvaluatorMaxConcurrent int
	EvaluatorCooldown      time.Duration

	// Cleanup
	CleanupSchedule  string
	SessionGraceDays int

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string
	LogLevel    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load()
}

// LoadFile は指定した.envファイルを読み込んでからConfigを構築する。
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return load()
}

func load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// APIキーは未設定でも起動する。天気エンドポイントが500を返す。
	cfg.WeatherAPIKey = getEnvString("OPENWEATHERMAP_API_KEY_SECRET", os.Getenv("OPENWEATHERMAP_API_KEY"))

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.WeatherBaseURL = getEnvString("OPENWEATHERMAP_BASE_URL", defaultOpenWeatherMapBaseURL)
	cfg.WeatherLang = getEnvString("WEATHER_LANG", "kr")
	cfg.ForecastDays = getEnvInt("FORECAST_DAYS", 3)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.UpstreamRPS = getEnvFloat("UPSTREAM_RPS", 1)
	cfg.UpstreamBurst = getEnvInt("UPSTREAM_BURST", 5)
	cfg.UpstreamMaxRetries = getEnvInt("UPSTREAM_MAX_RETRIES", 2)
	cfg.UpstreamInitialBackoff = getEnvDuration("UPSTREAM_INITIAL_BACKOFF", 500*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)
	cfg.EvaluatorEnabled = getEnvBool("EVALUATOR_ENABLED", false)
	cfg.EvaluatorSchedule = getEnvString("EVALUATOR_SCHEDULE", "@every 15m")
	cfg.EvaluatorMaxConcurrent = getEnvInt("EVALUATOR_MAX_CONCURRENT", 5)
	cfg.EvaluatorCooldown = getEnvDuration("EVALUATOR_COOLDOWN", 6*time.Hour)
	cfg.CleanupSchedule = getEnvString("CLEANUP_SCHEDULE", "@daily")
	cfg.SessionGraceDays = getEnvInt("SESSION_GRACE_DAYS", 1)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.ForecastDays < 1 {
		return nil, fmt.Errorf("FORECAST_DAYS must be positive: %d", cfg.ForecastDays)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
