package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file named by VERITAS_ENV (default .env), then the
// matching .secret sidecar if present. All config is flat env vars read via
// os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("VERITAS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock. Defaults to "openai".
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// LogLevel returns the log level (debug, info, warn, error). Defaults to "info".
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns the per-IP requests-per-second limit. Defaults to 100.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting. Defaults to 20.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// Ledger tunables. Defaults live in the service package; these override only
// when the env var parses to a value in (0, 1]. Keep the duplicate >
// propagation > fact-similar ordering when overriding.

func PropagationThreshold(fallback float64) float64 {
	return floatEnv("PROPAGATION_THRESHOLD", fallback)
}

func PropagationDecay(fallback float64) float64 {
	return floatEnv("PROPAGATION_DECAY", fallback)
}

func MinPropagatedChange(fallback float64) float64 {
	return floatEnv("MIN_PROPAGATED_CHANGE", fallback)
}

func SimilarityThreshold(fallback float64) float64 {
	return floatEnv("SIMILARITY_THRESHOLD", fallback)
}

func ClusterThreshold(fallback float64) float64 {
	return floatEnv("CLUSTER_THRESHOLD", fallback)
}

func FactSimilarityThreshold(fallback float64) float64 {
	return floatEnv("FACT_SIMILARITY_THRESHOLD", fallback)
}

func floatEnv(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 || v > 1 {
		return fallback
	}
	return v
}
