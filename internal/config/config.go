package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL = "https://www.accessdata.fda.gov/MAUDE/ftparea"
	defaultDataDir = "./maude_data"
)

// Config carries the environment-backed defaults. Values are resolved once
// at startup; flags override them.
type Config struct {
	BaseURL  string
	DataDir  string
	ThruYear int // year suffix of the cumulative archives
}

// Load reads a .env file if present and resolves the configuration from
// the environment.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		BaseURL:  envOr("MAUDE_BASE_URL", defaultBaseURL),
		DataDir:  envOr("MAUDE_DATA_DIR", defaultDataDir),
		ThruYear: time.Now().Year() - 1,
	}

	if v := os.Getenv("MAUDE_THRU_YEAR"); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			cfg.ThruYear = year
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
