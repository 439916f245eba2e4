package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Notification Config
	SMSGatewayURL      string        `env:"SMS_GATEWAY_URL"`
	SMSGatewayKey      string        `env:"SMS_GATEWAY_KEY"`
	SMSFrom            string        `env:"SMS_FROM"`
	PushGatewayURL     string        `env:"PUSH_GATEWAY_URL"`
	PushGatewayKey     string        `env:"PUSH_GATEWAY_KEY"`
	ChannelTimeout     time.Duration `env:"CHANNEL_TIMEOUT" envDefault:"5s"`
	DispatchWorkers    int           `env:"DISPATCH_WORKERS" envDefault:"4"`
	DispatchMaxRetries int           `env:"DISPATCH_MAX_RETRIES" envDefault:"3"`
	DispatchBaseDelay  time.Duration `env:"DISPATCH_BASE_DELAY" envDefault:"2s"`

	// Incident Config
	DefaultSOSMessage string `env:"DEFAULT_SOS_MESSAGE" envDefault:"Emergency SOS Alert!"`
	HistoryLimit      int    `env:"HISTORY_LIMIT" envDefault:"50"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		SMSGatewayURL:      os.Getenv("SMS_GATEWAY_URL"),
		SMSGatewayKey:      os.Getenv("SMS_GATEWAY_KEY"),
		SMSFrom:            os.Getenv("SMS_FROM"),
		PushGatewayURL:     os.Getenv("PUSH_GATEWAY_URL"),
		PushGatewayKey:     os.Getenv("PUSH_GATEWAY_KEY"),
		ChannelTimeout:     getEnvAsDuration("CHANNEL_TIMEOUT", 5*time.Second),
		DispatchWorkers:    getEnvAsInt("DISPATCH_WORKERS", 4),
		DispatchMaxRetries: getEnvAsInt("DISPATCH_MAX_RETRIES", 3),
		DispatchBaseDelay:  getEnvAsDuration("DISPATCH_BASE_DELAY", 2*time.Second),
		DefaultSOSMessage:  getEnv("DEFAULT_SOS_MESSAGE", "Emergency SOS Alert!"),
		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 50),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
