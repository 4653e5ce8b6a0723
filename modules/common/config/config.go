package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Generation backends
const (
	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

// Config - every environment-driven setting of the server
type Config struct {
	// Server
	Port           string
	MaxUploadBytes int64

	// Sessions
	SessionIdleTTL time.Duration
	SessionMaxAge  time.Duration

	// Generation
	Backend      string
	GeminiAPIKey string
	GeminiModel  string

	// Vertex AI
	VertexProject  string
	VertexLocation string
	VertexModel    string

	// Vertex AI credentials; both empty means Application Default Credentials
	VertexCredentialsJSON string
	VertexCredentialsPath string

	// Redis (diagnostics sink, optional)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	DiagnosticsKey string
	DiagnosticsMax int64
}

// LoadConfig - load .env (when present) and the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 32<<20),

		SessionIdleTTL: getDuration("SESSION_IDLE_TTL", 2*time.Hour),
		SessionMaxAge:  getDuration("SESSION_MAX_AGE", 24*time.Hour),

		Backend:      strings.ToLower(getEnv("GENERATION_BACKEND", BackendGemini)),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),

		VertexProject:  getEnv("VERTEXAI_PROJECT", os.Getenv("GOOGLE_CLOUD_PROJECT")),
		VertexLocation: getEnv("VERTEXAI_LOCATION", "us-central1"),
		VertexModel:    getEnv("VERTEXAI_MODEL", "gemini-2.5-flash-image"),

		VertexCredentialsJSON: getEnv("VERTEXAI_CREDENTIALS_JSON", ""),
		VertexCredentialsPath: getEnv("VERTEXAI_CREDENTIALS_PATH", ""),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getBool("REDIS_USE_TLS", false),

		DiagnosticsKey: getEnv("DIAGNOSTICS_KEY", "fitting-room:diagnostics"),
		DiagnosticsMax: getInt64("DIAGNOSTICS_MAX", 200),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Backend: %s (model: %s)", cfg.Backend, cfg.Model())
	if cfg.RedisEnabled() {
		log.Printf("   Redis diagnostics: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	}
	log.Printf("   Upload limit: %d bytes", cfg.MaxUploadBytes)

	return cfg, nil
}

// validate - required keys per backend
func (c *Config) validate() error {
	switch c.Backend {
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case BackendVertex:
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEXAI_PROJECT is required for the vertex backend")
		}
	default:
		return fmt.Errorf("unknown GENERATION_BACKEND %q (want %q or %q)", c.Backend, BackendGemini, BackendVertex)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// Model - model name of the active backend
func (c *Config) Model() string {
	if c.Backend == BackendVertex {
		return c.VertexModel
	}
	return c.GeminiModel
}

// RedisEnabled - diagnostics are mirrored to Redis only when a host is set
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// GetRedisAddr - host:port for the Redis client
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Printf("⚠️  %s=%q is not a bool, using %v", key, value, defaultValue)
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
		log.Printf("⚠️  %s=%q is not an integer, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("⚠️  %s=%q is not a duration, using %s", key, value, defaultValue)
	}
	return defaultValue
}
