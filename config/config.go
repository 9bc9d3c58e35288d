// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dealforge/docfin/finance"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds application configuration.
type Config struct {
	Port         string
	DatabasePath string

	RedisAddr string
	CacheTTL  time.Duration

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	LLMAPIKey  string
	LLMAPIURL  string
	LLMModel   string
	LLMTimeout time.Duration

	RateLimit   string // ulule formatted, e.g. "120-M"
	LogLevel    string
	CORSOrigins []string

	PaymentDayPolicy finance.DayPolicy
}

// Load reads configuration. Values in the environment override values in
// .env files, which override defaults.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "./data/docfin.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_API_URL", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT", "120-M")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("PAYMENT_DAY_POLICY", string(finance.DayClamp28))
	v.AutomaticEnv()

	cfg := &Config{
		Port:         v.GetString("PORT"),
		DatabasePath: v.GetString("DATABASE_PATH"),
		RedisAddr:    v.GetString("REDIS_ADDR"),
		S3Bucket:     v.GetString("S3_BUCKET"),
		S3Region:     v.GetString("S3_REGION"),
		S3Endpoint:   v.GetString("S3_ENDPOINT"),
		LLMAPIKey:    v.GetString("LLM_API_KEY"),
		LLMAPIURL:    v.GetString("LLM_API_URL"),
		LLMModel:     v.GetString("LLM_MODEL"),
		RateLimit:    v.GetString("RATE_LIMIT"),
		LogLevel:     v.GetString("LOG_LEVEL"),
	}

	var err error
	if cfg.CacheTTL, err = duration(v, "CACHE_TTL"); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = duration(v, "LLM_TIMEOUT"); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	cfg.PaymentDayPolicy = finance.DayPolicy(v.GetString("PAYMENT_DAY_POLICY"))
	if !cfg.PaymentDayPolicy.Valid() {
		return nil, fmt.Errorf("invalid PAYMENT_DAY_POLICY %q", cfg.PaymentDayPolicy)
	}

	return cfg, nil
}

// duration reads key the way viper's GetDuration does, but keeps the parse
// error instead of reporting zero.
func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v.GetString(key), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v.GetString(key))
	}
	return d, nil
}

// Logger builds the service logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
