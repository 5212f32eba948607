package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Telegram TelegramConfig
	AI       AIConfig
	Wizard   WizardConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ApplicationName string
}

// RedisConfig holds Redis connection values. Sessions stay in memory when Addr is empty.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Enabled reports whether a Redis server was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
	// Service is attached to every log entry.
	Service string
}

// AuthConfig defines staff API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token              string
	SupportGroupID     int64
	PollTimeoutSeconds int
	Debug              bool
	// SupportLanguage selects the language of messages posted into the support group.
	SupportLanguage string
}

// AIConfig configures the Gemini text-completion collaborator.
type AIConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	TimeoutSeconds  int
	Temperature     float64
	MaxOutputTokens int
	HistoryLimit    int
}

// Enabled reports whether an API key was configured.
func (a AIConfig) Enabled() bool {
	return a.APIKey != ""
}

// Timeout returns the per-request deadline for AI calls.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// WizardConfig controls intake session lifetime.
type WizardConfig struct {
	SessionTTLMinutes int
	SweepSchedule     string
}

// SessionTTL returns the idle expiry for intake sessions.
func (w WizardConfig) SessionTTL() time.Duration {
	if w.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(w.SessionTTLMinutes) * time.Minute
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return nil, errors.New("TELEGRAM_TOKEN is required")
	}
	groupID, err := strconv.ParseInt(os.Getenv("ADMIN_GROUP_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_GROUP_ID: %w", err)
	}

	temperature, err := strconv.ParseFloat(getEnv("GEMINI_TEMPERATURE", "0.2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GEMINI_TEMPERATURE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ApplicationName: getEnv("APP_NAME", "support-bot"),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "support-bot:"),
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("APP_NAME", "support-bot"),
		},
		Auth: loadAuth(),
		Telegram: TelegramConfig{
			Token:              token,
			SupportGroupID:     groupID,
			PollTimeoutSeconds: getEnvAsInt("TELEGRAM_POLL_TIMEOUT_SECONDS", 60),
			Debug:              getEnvAsBool("TELEGRAM_DEBUG", false),
			SupportLanguage:    getEnv("SUPPORT_LANGUAGE", "ru"),
		},
		AI: AIConfig{
			APIKey:          os.Getenv("GEMINI_API_KEY"),
			Model:           getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			TimeoutSeconds:  getEnvAsInt("GEMINI_TIMEOUT_SECONDS", 60),
			Temperature:     temperature,
			MaxOutputTokens: getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 2048),
			HistoryLimit:    getEnvAsInt("AI_HISTORY_LIMIT", 15),
		},
		Wizard: WizardConfig{
			SessionTTLMinutes: getEnvAsInt("WIZARD_SESSION_TTL_MINUTES", 30),
			SweepSchedule:     getEnv("WIZARD_SWEEP_SCHEDULE", "@every 1m"),
		},
	}

	return cfg, nil
}

// LoadAuth reads only the operator API settings. It does not require bot credentials.
func LoadAuth() AuthConfig {
	_ = godotenv.Load()
	return loadAuth()
}

func loadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
		AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
