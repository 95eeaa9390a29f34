package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file, overridable with RENTAL_CONFIG.
var ConfigPath = envOr("RENTAL_CONFIG", "config.yaml")

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	LogLevel                 string   `yaml:"logLevel"`
	StoreBackend             string   `yaml:"storeBackend"`
	DatabasePath             string   `yaml:"databasePath"`
	DataFile                 string   `yaml:"dataFile"`
	SeedCount                int      `yaml:"seedCount"`
	RandomSeed               int64    `yaml:"randomSeed"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	CreateRateLimitPerMinute int      `yaml:"createRateLimitPerMinute"`
	CreateRateLimitFailOpen  bool     `yaml:"createRateLimitFailOpen"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
	CORSAllowedOrigins       []string `yaml:"corsAllowedOrigins"`
	ShutdownTimeout          string   `yaml:"shutdownTimeout"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() FileConfig {
	return FileConfig{
		Port:                     "8001",
		LogLevel:                 "info",
		StoreBackend:             "sqlite",
		DatabasePath:             "rental_ai.db",
		DataFile:                 "data/rental_ai.json",
		SeedCount:                100,
		CreateRateLimitPerMinute: 30,
		ShutdownTimeout:          "10s",
	}
}

// Load reads a .env file if present, then path (defaults to ConfigPath) on
// top of Defaults, then environment overrides. A missing YAML file is not an
// error.
func Load(path string) (FileConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return FileConfig{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Defaults()
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	if v := os.Getenv("RENTAL_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("RENTAL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RENTAL_STORE_BACKEND"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("RENTAL_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("RENTAL_DATA_FILE"); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv("RENTAL_SEED_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid RENTAL_SEED_COUNT %q", v)
		}
		cfg.SeedCount = n
	}
	if v := os.Getenv("RENTAL_RANDOM_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid RENTAL_RANDOM_SEED %q", v)
		}
		cfg.RandomSeed = n
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("RENTAL_CREATE_RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid RENTAL_CREATE_RATE_LIMIT_PER_MINUTE %q", v)
		}
		cfg.CreateRateLimitPerMinute = n
	}
	if v := os.Getenv("RENTAL_CREATE_RATE_LIMIT_FAIL_OPEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid RENTAL_CREATE_RATE_LIMIT_FAIL_OPEN %q", v)
		}
		cfg.CreateRateLimitFailOpen = b
	}
	if v := os.Getenv("RENTAL_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("RENTAL_CORS_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	return nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required (set in config.yaml or RENTAL_PORT)")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "sqlite":
		if strings.TrimSpace(cfg.DatabasePath) == "" {
			return errors.New("config: databasePath is required for the sqlite backend")
		}
	case "file":
		if strings.TrimSpace(cfg.DataFile) == "" {
			return errors.New("config: dataFile is required for the file backend")
		}
	default:
		return fmt.Errorf("config: storeBackend must be sqlite or file, got %q", cfg.StoreBackend)
	}
	if cfg.SeedCount < 0 {
		return errors.New("config: seedCount must be >= 0")
	}
	if cfg.CreateRateLimitPerMinute < 0 {
		return errors.New("config: createRateLimitPerMinute must be >= 0")
	}
	if _, err := ParseShutdownTimeout(cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}

// StorePath returns the location used by the selected backend.
func (c FileConfig) StorePath() string {
	if strings.EqualFold(strings.TrimSpace(c.StoreBackend), "file") {
		return c.DataFile
	}
	return c.DatabasePath
}

// ParseShutdownTimeout parses the optional graceful shutdown timeout.
func ParseShutdownTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 10 * time.Second, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("config: invalid shutdownTimeout %q", raw)
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
