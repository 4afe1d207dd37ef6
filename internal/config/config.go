package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageFile  = "file"
	StorageRedis = "redis"
)

type Config struct {
	GeminiAPIKey      string
	GeminiImageModel  string
	GeminiVisionModel string
	GeminiTextModel   string
	GeminiRateEvery   time.Duration
	GeminiRateBurst   int
	StyleCacheTTL     time.Duration

	TelegramToken string
	HTTPAddr      string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	HTTPTimeout           time.Duration
	RequestTimeout        time.Duration
	MaxConcurrent         int
	AdaptationParallelism int
	MaxHistory            int
	MaxCustomPresets      int
	MediaGroupDebounce    time.Duration

	StorageBackend string
	DataDir        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string

	SentryDSN         string
	SentryEnvironment string

	ExportEncoding string
}

// Load reads the environment. Invalid numbers fall back to their defaults and
// out-of-range values are clamped.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-pro"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiRateEvery:   time.Duration(getEnvInt("GEMINI_RATE_INTERVAL_MS", 500)) * time.Millisecond,
		GeminiRateBurst:   getEnvInt("GEMINI_RATE_BURST", 2),
		StyleCacheTTL:     time.Duration(getEnvInt("STYLE_CACHE_TTL_MINUTES", 30)) * time.Minute,

		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),

		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:      getEnvBool("DEBUG", false),
		PreferIPv4: getEnvBool("PREFER_IPV4", true),

		HTTPTimeout:           time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:        time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 600)) * time.Second,
		MaxConcurrent:         getEnvInt("MAX_CONCURRENT", 4),
		AdaptationParallelism: getEnvInt("ADAPTATION_PARALLELISM", 3),
		MaxHistory:            getEnvInt("MAX_HISTORY", 20),
		MaxCustomPresets:      getEnvInt("MAX_CUSTOM_PRESETS", 100),
		MediaGroupDebounce:    time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile)),
		DataDir:        getEnv("DATA_DIR", "./data"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisPrefix:    getEnv("REDIS_PREFIX", "evs:"),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),

		ExportEncoding: strings.ToLower(getEnv("EXPORT_ENCODING", "png")),
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		cfg.LogLevel = "info"
	}
	if cfg.GeminiRateEvery <= 0 {
		cfg.GeminiRateEvery = 500 * time.Millisecond
	}
	if cfg.GeminiRateBurst < 1 {
		cfg.GeminiRateBurst = 1
	}
	if cfg.StyleCacheTTL <= 0 {
		cfg.StyleCacheTTL = 30 * time.Minute
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 600 * time.Second
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.AdaptationParallelism < 1 {
		cfg.AdaptationParallelism = 1
	}
	if cfg.MaxHistory < 1 {
		cfg.MaxHistory = 1
	}
	if cfg.MaxCustomPresets < 1 {
		cfg.MaxCustomPresets = 1
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.ExportEncoding != "webp" {
		cfg.ExportEncoding = "png"
	}

	switch cfg.StorageBackend {
	case StorageFile:
	case StorageRedis:
		if cfg.RedisAddr == "" {
			return Config{}, errors.New("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
