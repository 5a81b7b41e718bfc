package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	FrontendURL    string
	// Database
	DatabaseURL string
	// Snapshot file for the in-memory backend when no database is configured
	DataFile string
	// Logging
	LogLevel  string
	LogFormat string
	// LLM
	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GoogleAPIKey  string
	GeminiModel   string
	PromptFile    string
	// Chat
	ChatHistoryLimit  int
	ChatRatePerMinute int
	// Notifications
	NATSURL       string
	SweepInterval time.Duration
	// Google OAuth sign-in
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string
	OAuthScopes        []string
	// Sessions
	SessionTTL    time.Duration
	SecureCookies bool
	// When set, unauthenticated requests act as this user (local development only)
	DevUserEmail string
}

// Load reads the process environment (after merging an optional .env file).
// It never fails; missing credentials downgrade features and are reported by Warnings.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:               getEnvDefault("PORT", "8080"),
		AllowedOrigins:     getEnvListDefault("ALLOWED_ORIGIN", []string{"*"}),
		FrontendURL:        getEnvDefault("FRONTEND_URL", "http://localhost:3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DataFile:           os.Getenv("DATA_FILE"),
		LogLevel:           getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvDefault("LOG_FORMAT", "json"),
		LLMProvider:        strings.ToLower(getEnvDefault("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:        getEnvDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		PromptFile:         os.Getenv("PROMPT_FILE"),
		ChatHistoryLimit:   getEnvIntDefault("CHAT_HISTORY_LIMIT", 20),
		ChatRatePerMinute:  getEnvIntDefault("CHAT_RATE_PER_MINUTE", 20),
		NATSURL:            os.Getenv("NATS_URL"),
		SweepInterval:      getEnvDurationDefault("SWEEP_INTERVAL", 15*time.Minute),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   getEnvDefault("OAUTH_REDIRECT_URL", "http://localhost:8080/api/auth/callback"),
		OAuthScopes:        getEnvListDefault("OAUTH_SCOPES", []string{"openid", "email", "profile"}),
		SessionTTL:         getEnvDurationDefault("SESSION_TTL", 30*24*time.Hour),
		SecureCookies:      getEnvBoolDefault("SECURE_COOKIES", false),
		DevUserEmail:       os.Getenv("DEV_USER_EMAIL"),
	}
}

// Warnings lists configuration gaps worth logging at startup.
func (c Config) Warnings() []string {
	var out []string
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			out = append(out, "OPENAI_API_KEY is not set; chat replies fall back to templates")
		}
	case "gemini":
		if c.GoogleAPIKey == "" {
			out = append(out, "GOOGLE_API_KEY is not set; chat replies fall back to templates")
		}
	}
	if c.DatabaseURL == "" {
		out = append(out, "DATABASE_URL not provided, using in-memory storage")
	}
	if c.GoogleClientID == "" && c.DevUserEmail == "" {
		out = append(out, "neither Google OAuth nor DEV_USER_EMAIL is configured; nobody can sign in")
	}
	return out
}

// OAuthEnabled reports whether Google sign-in is fully configured.
func (c Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
