package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	DatabasePath  string
	LogLevel      string
	BaseCurrency  string
	InboxPath     string
	OverridesPath string

	SymbologyBaseURL   string
	SymbologyRateEvery time.Duration
	SymbologyTimeout   time.Duration

	ResolverHitTTL  time.Duration
	ResolverMissTTL time.Duration
	ResolverWorkers int
	ParserWorkers   int
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		DatabasePath:  getEnv("DATABASE_PATH", "./warroom.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BaseCurrency:  getEnv("BASE_CURRENCY", "EUR"),
		InboxPath:     getEnv("INBOX_PATH", "./inbox"),
		OverridesPath: getEnv("TICKER_OVERRIDES_PATH", "data/ticker_overrides.json"),

		SymbologyBaseURL:   getEnv("SYMBOLOGY_BASE_URL", "https://query1.finance.yahoo.com"),
		SymbologyRateEvery: getEnvAsDuration("SYMBOLOGY_RATE_EVERY", 250*time.Millisecond),
		SymbologyTimeout:   getEnvAsDuration("SYMBOLOGY_TIMEOUT", 20*time.Second),

		ResolverHitTTL:  getEnvAsDuration("RESOLVER_HIT_TTL", 24*time.Hour),
		ResolverMissTTL: getEnvAsDuration("RESOLVER_MISS_TTL", 15*time.Minute),
		ResolverWorkers: getEnvAsInt("RESOLVER_WORKERS", 4),
		ParserWorkers:   getEnvAsInt("PARSER_WORKERS", 4),
	}

	if Cfg.ResolverWorkers < 1 {
		log.Printf("WARNING: RESOLVER_WORKERS must be >= 1, got %d. Using 1.", Cfg.ResolverWorkers)
		Cfg.ResolverWorkers = 1
	}
	if Cfg.ParserWorkers < 1 {
		log.Printf("WARNING: PARSER_WORKERS must be >= 1, got %d. Using 1.", Cfg.ParserWorkers)
		Cfg.ParserWorkers = 1
	}

	log.Printf("Configuration loaded: LogLevel=%s, DBPath=%s, BaseCurrency=%s, Inbox=%s",
		Cfg.LogLevel, Cfg.DatabasePath, Cfg.BaseCurrency, Cfg.InboxPath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
