package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Session store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT" validate:"min=1,max=65535"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	OllamaURL        string        `mapstructure:"OLLAMA_URL" validate:"required,url"`
	ModelName        string        `mapstructure:"MODEL_NAME" validate:"required"`
	ModelTimeout     time.Duration `mapstructure:"MODEL_TIMEOUT" validate:"gt=0"`
	ModelRateLimit   float64       `mapstructure:"MODEL_RATE_LIMIT" validate:"gte=0"` // requests per second, 0 disables
	ModelRateBurst   int           `mapstructure:"MODEL_RATE_BURST" validate:"min=1"`
	ReadinessTimeout time.Duration `mapstructure:"READINESS_TIMEOUT" validate:"gte=0"`

	StoreDriver    string        `mapstructure:"STORE_DRIVER" validate:"oneof=memory sqlite redis"`
	DatabasePath   string        `mapstructure:"DATABASE_PATH" validate:"required_if=StoreDriver sqlite"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR" validate:"required_if=StoreDriver redis"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL" validate:"gt=0"`
	ReaperInterval time.Duration `mapstructure:"REAPER_INTERVAL" validate:"gt=0"`
	HistoryLimit   int           `mapstructure:"HISTORY_LIMIT" validate:"min=1"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("OLLAMA_URL", "http://ollama:11434")
	viper.SetDefault("MODEL_NAME", "ryan-mistral-gpu")
	viper.SetDefault("MODEL_TIMEOUT", "60s")
	viper.SetDefault("MODEL_RATE_LIMIT", 0)
	viper.SetDefault("MODEL_RATE_BURST", 4)
	viper.SetDefault("READINESS_TIMEOUT", "30s")
	viper.SetDefault("STORE_DRIVER", StoreMemory)
	viper.SetDefault("DATABASE_PATH", "/data/quiz.db")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SESSION_TTL", "24h")
	viper.SetDefault("REAPER_INTERVAL", "10m")
	viper.SetDefault("HISTORY_LIMIT", 20)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./backend")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
