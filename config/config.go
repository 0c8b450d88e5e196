package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Classifier policies. The policy is fixed configuration: changing it
// between runs invalidates period-over-period comparison.
const (
	PolicyHeuristic = "heuristic"
	PolicyExact     = "exact"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// DataRoots are candidate batch roots, in priority order.
	DataRoots []string
	OutputDir string

	ClassifierPolicy string
	TrackOther       bool

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	FetchRoot       string
	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		DataRoots: splitList(getEnv("DATA_ROOTS", "fhrs_data,data/raw")),
		OutputDir: getEnv("OUTPUT_DIR", "data"),

		ClassifierPolicy: getEnv("CLASSIFIER_POLICY", PolicyHeuristic),
		TrackOther:       getEnvBool("TRACK_OTHER", true),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "fhrs"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "fhrs123"),
		PostgresDB:       getEnv("POSTGRES_DB", "fhrs_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		FetchRoot:      getEnv("FETCH_ROOT", "fhrs_data"),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 200),
		MaxRetries:     getEnvInt("MAX_RETRIES", 5),
	}

	if cfg.ClassifierPolicy != PolicyHeuristic && cfg.ClassifierPolicy != PolicyExact {
		log.Printf("[config] Unknown CLASSIFIER_POLICY %q, using %q", cfg.ClassifierPolicy, PolicyHeuristic)
		cfg.ClassifierPolicy = PolicyHeuristic
	}

	// The exact-match policy always surfaces OTHER in its output.
	if cfg.ClassifierPolicy == PolicyExact {
		cfg.TrackOther = true
	}

	return cfg
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
