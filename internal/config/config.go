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
	EngineAI   = "ai"
	EngineTint = "tint"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	MaxConcurrent    int
	RequestTimeout   time.Duration
	HTTPTimeout      time.Duration
	SessionTTL       time.Duration
	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiBackend    string
	GeminiImageModel string

	CatalogFile    string
	QuoteRecipient string
	QuoteChatID    int64

	// MediaGroupDebounce is how long the bot waits for the rest of an album.
	MediaGroupDebounce time.Duration

	WebAddr      string
	MockupEngine string
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:         strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:            getEnvBool("DEBUG", false),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		GeminiBaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiBackend:    strings.ToLower(getEnv("GEMINI_BACKEND", "rest")),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		CatalogFile:      getEnv("CATALOG_FILE", ""),
		QuoteRecipient:   getEnv("QUOTE_RECIPIENT", "info@classicsportswear.com.au"),
		QuoteChatID:      getEnvInt64("QUOTE_CHAT_ID", 0),
		WebAddr:          getEnv("WEB_ADDR", ":8080"),
		MockupEngine:     strings.ToLower(getEnv("MOCKUP_ENGINE", EngineAI)),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.MediaGroupDebounce = time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond

	switch cfg.MockupEngine {
	case EngineAI, EngineTint:
	default:
		return Config{}, fmt.Errorf("MOCKUP_ENGINE must be %q or %q, got %q", EngineAI, EngineTint, cfg.MockupEngine)
	}
	if cfg.GeminiAPIKey == "" && cfg.MockupEngine == EngineAI {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.SessionTTL < 0 {
		cfg.SessionTTL = 0
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

// AIEnabled reports whether a Gemini key is configured.
func (c Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
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

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
