package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort    = 8080
	DefaultSaveDir = ".saves"
	DefaultCompany = "IdoLab Entertainment"
)

// Config holds the application configuration.
type Config struct {
	Port         int
	SaveDir      string
	BalanceFile  string // empty means built-in defaults
	JournalPath  string // empty disables the journal
	Company      string
	Seed         uint64
	SeedSet      bool // Seed came from the environment
	LogFile      string
	GeminiAPIKey string // empty disables the narrator
}

// LoadConfig loads the configuration from environment variables, after
// reading a .env file in the working directory if one exists. Variables
// already set in the environment win over the file.
func LoadConfig() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}

	cfg := &Config{
		Port:         DefaultPort,
		SaveDir:      getenv("IDOLAB_SAVE_DIR", DefaultSaveDir),
		BalanceFile:  getenv("IDOLAB_BALANCE", ""),
		JournalPath:  getenv("IDOLAB_JOURNAL", ""),
		Company:      getenv("IDOLAB_COMPANY", DefaultCompany),
		LogFile:      getenv("IDOLAB_LOG_FILE", ""),
		GeminiAPIKey: getenv("GEMINI_API_KEY", ""),
	}

	if v := getenv("IDOLAB_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("IDOLAB_PORT: %q is not a valid port", v)
		}
		cfg.Port = port
	}
	if v := getenv("IDOLAB_SEED", ""); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("IDOLAB_SEED: %w", err)
		}
		cfg.Seed, cfg.SeedSet = seed, true
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
