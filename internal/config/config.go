package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything main needs from the environment.
type Config struct {
	ListenAddr    string
	OracleBaseURL string
	SimMode       bool
	MongoURI      string
	MongoDB       string
	PostgresDSN   string
	RebaseEvery   time.Duration
}

// Load reads .env (when present) and the process environment. Missing
// values fall back to dev-friendly defaults; an empty MongoURI or
// PostgresDSN disables that integration.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:    getString("LISTEN_ADDR", ":8080"),
		OracleBaseURL: getString("ORACLE_URL", ""),
		SimMode:       getBool("SIM_MODE", false),
		MongoURI:      getString("MONGODB_URI", ""),
		MongoDB:       getString("MONGODB_DB", "diplomats_club"),
		PostgresDSN:   getString("POSTGRES_DSN", ""),
		RebaseEvery:   getDuration("REBASE_INTERVAL", 45*time.Second),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
