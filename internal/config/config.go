package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const DefaultWelcomeMessage = "Hello! I'm Gemini. What would you like to ask me?"

type Config struct {
	// Server
	Port string
	Env  string

	// Redis (optional, enables cross-instance WebSocket fan-out)
	RedisURL string

	// JWT
	JWTSecret string

	// Gemini AI
	GeminiAPIKey         string
	GeminiKeySource      string
	GeminiModel          string
	GeminiTemperature    float32
	GeminiConcurrentReqs int
	SecretsFile          string

	// Chat sessions
	WelcomeMessage       string
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration
	SessionTokenTTL      time.Duration
	MessageRateLimit     int

	// Frontend
	FrontendURL string

	// Logging
	LogLevel string
}

// Load reads configuration from the environment. A missing Gemini key is not
// fatal: it leaves GeminiAPIKey empty and the caller decides how to degrade.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:            getEnvOrDefault("JWT_SECRET", ""),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTemperature:    float32(getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", 0.7)),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		SecretsFile:          getEnvOrDefault("SECRETS_FILE", ".streamlit/secrets.toml"),
		WelcomeMessage:       getEnvOrDefault("WELCOME_MESSAGE", DefaultWelcomeMessage),
		SessionIdleTimeout:   getEnvAsDurationOrDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionSweepInterval: getEnvAsDurationOrDefault("SESSION_SWEEP_INTERVAL", time.Minute),
		SessionTokenTTL:      getEnvAsDurationOrDefault("SESSION_TOKEN_TTL", 24*time.Hour),
		MessageRateLimit:     getEnvAsIntOrDefault("MESSAGE_RATE_LIMIT", 20),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}

	key, source, err := ResolveAPIKey(cfg.SecretsFile, "GEMINI_API_KEY")
	if err != nil {
		return cfg, err
	}
	cfg.GeminiAPIKey = key
	cfg.GeminiKeySource = source

	return cfg, nil
}

// Usable reports whether completion requests may be attempted.
func (c *Config) Usable() bool {
	return c.GeminiAPIKey != ""
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
