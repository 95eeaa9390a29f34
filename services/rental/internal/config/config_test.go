package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, `
port: "9000"
storeBackend: file
dataFile: /tmp/rental.json
seedCount: 12
corsAllowedOrigins: ["https://rent.example"]
`)
	t.Setenv("RENTAL_SEED_COUNT", "40")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RENTAL_TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 192.168.0.1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.StoreBackend != "file" || cfg.StorePath() != "/tmp/rental.json" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.SeedCount != 40 {
		t.Fatalf("env override not applied: seedCount=%d", cfg.SeedCount)
	}
	if cfg.RedisAddr != "localhost:6379" || len(cfg.TrustedProxyCIDRs) != 2 {
		t.Fatalf("env lists not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.CreateRateLimitPerMinute != 30 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRateLimitFailOpen(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, "createRateLimitFailOpen: true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.CreateRateLimitFailOpen {
		t.Fatalf("yaml fail-open not applied")
	}

	t.Setenv("RENTAL_CREATE_RATE_LIMIT_FAIL_OPEN", "false")
	if cfg, err = Load(path); err != nil {
		t.Fatalf("load with env: %v", err)
	}
	if cfg.CreateRateLimitFailOpen {
		t.Fatalf("env override not applied")
	}

	t.Setenv("RENTAL_CREATE_RATE_LIMIT_FAIL_OPEN", "sometimes")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed fail-open flag")
	}
	if Defaults().CreateRateLimitFailOpen {
		t.Fatalf("limiter must fail closed by default")
	}
}

func TestLoadToleratesMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != "sqlite" || cfg.StorePath() != "rental_ai.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RENTAL_PORT=7070\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overwrites variables that are already set, so make
	// sure the test owns RENTAL_PORT and clean it up afterwards.
	t.Setenv("RENTAL_PORT", "")
	os.Unsetenv("RENTAL_PORT")

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("port from .env not applied: %q", cfg.Port)
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	cases := map[string]func(*FileConfig){
		"unknown backend":   func(c *FileConfig) { c.StoreBackend = "mongo" },
		"empty port":        func(c *FileConfig) { c.Port = "" },
		"negative seed":     func(c *FileConfig) { c.SeedCount = -1 },
		"negative limit":    func(c *FileConfig) { c.CreateRateLimitPerMinute = -5 },
		"bad shutdown":      func(c *FileConfig) { c.ShutdownTimeout = "soon" },
		"missing db path":   func(c *FileConfig) { c.DatabasePath = " " },
		"missing data file": func(c *FileConfig) { c.StoreBackend, c.DataFile = "file", "" },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParseShutdownTimeout(t *testing.T) {
	if d, err := ParseShutdownTimeout(""); err != nil || d != 10*time.Second {
		t.Fatalf("default timeout = %v, %v", d, err)
	}
	if d, err := ParseShutdownTimeout("3s"); err != nil || d != 3*time.Second {
		t.Fatalf("parsed timeout = %v, %v", d, err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeConfig(t, "port: [unterminated")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}
