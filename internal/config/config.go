package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string
	Mode         string
	DryRun       bool

	// Simulated person attributes
	ProfileAge      int
	ProfileSex      string
	ProfileHeightCM float64
	ProfileWeightKG float64

	// External health store gateway
	HealthStoreURL   string
	HealthStoreToken string

	// OpenAI configuration
	OpenAIAPIKey             string
	OpenAIWeeklySummaryModel string

	// OpenTelemetry configuration
	OTLPEndpoint string
	OTelEnv      string
}

func Load() *Config {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "vitalsim.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Mode:         getEnv("FIDELITY_MODE", "DETAILED"),
		DryRun:       getEnv("DRY_RUN", "false") == "true",

		ProfileAge:      getEnvInt("PROFILE_AGE", 32),
		ProfileSex:      getEnv("PROFILE_SEX", "OTHER"),
		ProfileHeightCM: getEnvFloat("PROFILE_HEIGHT_CM", 172),
		ProfileWeightKG: getEnvFloat("PROFILE_WEIGHT_KG", 70),

		HealthStoreURL:   getEnv("HEALTH_STORE_URL", ""),
		HealthStoreToken: getEnv("HEALTH_STORE_TOKEN", ""),

		OpenAIAPIKey:             getEnv("OPENAI_API_KEY", ""),
		OpenAIWeeklySummaryModel: getEnv("OPENAI_WEEKLY_SUMMARY_MODEL", "gpt-4o-mini"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		OTelEnv:      getEnv("OTEL_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
