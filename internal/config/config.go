// Package config loads server configuration from the environment.
//
// A .env file in the working directory is loaded first (godotenv), then plain
// environment variables override it. Everything ends up in one Config struct
// so the rest of the program never touches os.Getenv.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port      int    // PORT, default 3000
	StaticDir string // STATIC_DIR, default "web/static"

	// Storage backend selection. Postgres is used when USE_POSTGRES=true or
	// a DATABASE_URL is set; otherwise the embedded SQLite engine at DBPath.
	UsePostgres bool
	DatabaseURL string // DATABASE_URL (postgres connection string)
	DBPath      string // DB_PATH, default "data/radiocalico.db"

	// SeedSampleData inserts a few demo listeners into an empty users table
	// at startup. Off by default; handy for local development.
	SeedSampleData bool

	LogLevel slog.Level // LOG_LEVEL: debug, info, warn, error (default info)
}

// Load reads the .env file (if any) and the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env file is normal outside development.
		slog.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	cfg := Config{
		Port:      3000,
		StaticDir: "web/static",
		DBPath:    "data/radiocalico.db",
		LogLevel:  slog.LevelInfo,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.UsePostgres = boolEnv("USE_POSTGRES") || cfg.DatabaseURL != ""
	cfg.SeedSampleData = boolEnv("SEED_SAMPLE_DATA")

	if cfg.UsePostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("USE_POSTGRES is set but DATABASE_URL is empty")
	}

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	}

	return cfg, nil
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
