// Package config loads CLI defaults from the environment, with
// optional .env file support for development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries the defaults flags fall back to
type Config struct {
	LedgerPath string
	TaxBand    string
	Format     string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		LedgerPath: getEnv("TAXLENS_LEDGER", "ledger.json"),
		TaxBand:    getEnv("TAXLENS_TAX_BAND", "higher"),
		Format:     getEnv("TAXLENS_FORMAT", "text"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
