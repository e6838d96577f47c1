package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config captures the runtime configuration for the vidshare client.
type Config struct {
	APIBaseURL        string  `toml:"api_base_url"`
	StateDir          string  `toml:"state_dir"`
	CacheDir          string  `toml:"cache_dir"`
	PageSize          int     `toml:"page_size"`
	LogLevel          string  `toml:"log_level"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	RequestBurst      int     `toml:"request_burst"`
}

// DefaultBaseURL is the production API origin; override it via the config
// file or VIDSHARE_API_URL during local development.
const DefaultBaseURL = "https://native.videos.vitorweirich.com"

// Load assembles configuration in ascending precedence: built-in defaults,
// the TOML config file (explicit path or the default location), then
// environment variables. A .env file in the working directory is folded into
// the environment first when present.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := configPath
	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && configPath == "":
			// No config file is fine when the user did not ask for one.
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.APIBaseURL = getString("VIDSHARE_API_URL", cfg.APIBaseURL)
	cfg.StateDir = getString("VIDSHARE_STATE_DIR", cfg.StateDir)
	cfg.CacheDir = getString("VIDSHARE_CACHE_DIR", cfg.CacheDir)
	cfg.PageSize = getInt("VIDSHARE_PAGE_SIZE", cfg.PageSize)
	cfg.LogLevel = getString("VIDSHARE_LOG_LEVEL", cfg.LogLevel)
	cfg.RequestsPerSecond = getFloat("VIDSHARE_REQUESTS_PER_SECOND", cfg.RequestsPerSecond)
	cfg.RequestBurst = getInt("VIDSHARE_REQUEST_BURST", cfg.RequestBurst)

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.APIBaseURL == "" {
		return Config{}, errors.New("api base url must not be empty")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}

	return cfg, nil
}

const defaultPageSize = 50

func defaults() Config {
	return Config{
		APIBaseURL:        DefaultBaseURL,
		StateDir:          defaultDir("state"),
		CacheDir:          defaultDir("cache"),
		PageSize:          defaultPageSize,
		LogLevel:          "info",
		RequestsPerSecond: 10,
		RequestBurst:      5,
	}
}

func defaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "vidshare", "config.toml")
}

func defaultDir(kind string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vidshare", kind)
	}
	return filepath.Join(home, ".vidshare", kind)
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}
