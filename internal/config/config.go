package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxWorkers   int

	// Logging
	LogLevel  string
	LogFormat string

	// Database configuration
	DatabaseURL string

	// Generation pipeline configuration
	OpenRouterAPIKey   string
	OpenRouterModelIDs []string
	OpenAIAPIKey       string
	OpenAIModelID      string
	LocalBackendURL    string
	GenerationTimeout  time.Duration

	// Asset storage configuration
	S3Endpoint        string
	S3AccessKeyID     string
	S3AccessKeySecret string
	S3Bucket          string
	S3Region          string

	// Auth configuration
	JWTSecret            string
	JWTAccessExpiration  time.Duration
	JWTRefreshExpiration time.Duration
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using environment variables.")
	}

	config := &Config{
		// Server configuration
		Port:         getEnvInt("PORT", 8080),
		ReadTimeout:  time.Duration(getEnvInt("READ_TIMEOUT", 15)) * time.Second,
		WriteTimeout: time.Duration(getEnvInt("WRITE_TIMEOUT", 30)) * time.Second,
		MaxWorkers:   getEnvInt("MAX_WORKERS", 5),

		// Logging
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "console"),

		// Database configuration
		DatabaseURL: os.Getenv("POSTGRES_DB_URL"),

		// Generation pipeline configuration
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModelIDs: getEnvStringSlice("OPENROUTER_MODEL_IDS", []string{
			"meta-llama/llama-3.3-70b-instruct:free",
			"mistralai/mistral-7b-instruct:free",
		}),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModelID:     getEnvString("OPENAI_MODEL_ID", "gpt-4o-mini"),
		LocalBackendURL:   os.Getenv("LOCAL_BACKEND_URL"),
		GenerationTimeout: time.Duration(getEnvInt("GENERATION_TIMEOUT", 60)) * time.Second,

		// Asset storage configuration
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3AccessKeySecret: os.Getenv("S3_ACCESS_KEY_SECRET"),
		S3Bucket:          getEnvString("S3_BUCKET", "invoice-assets"),
		S3Region:          getEnvString("S3_REGION", "us-east-1"),

		// Auth configuration
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTAccessExpiration:  time.Duration(getEnvInt("JWT_ACCESS_EXPIRATION_MINUTES", 15)) * time.Minute,
		JWTRefreshExpiration: time.Duration(getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168)) * time.Hour,
	}

	validateConfig(config)

	return config, nil
}

// validateConfig checks critical configuration values and logs warnings if they're missing
func validateConfig(config *Config) {
	if config.DatabaseURL == "" {
		log.Println("Warning: POSTGRES_DB_URL is not set. Database connections will fail.")
	}

	if config.OpenRouterAPIKey == "" && config.OpenAIAPIKey == "" && config.LocalBackendURL == "" {
		log.Println("Warning: no generation backend configured. Assisted creation will fail.")
	}

	if config.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET is not set. Authentication will fail.")
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvStringSlice gets a string slice from a comma-separated environment variable
func getEnvStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
