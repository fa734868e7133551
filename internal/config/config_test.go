package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
env: dev
local:
  server:
    port: 9001
dev:
  server:
    host: 127.0.0.1
    port: 9002
  catalog:
    passes: 3
  http:
    retries: 4
prod:
  log:
    level: warn
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// clearEnv registers cleanup for key and leaves it unset for the test.
func clearEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
}

func TestLoadSelectsProfileAndAppliesDefaults(t *testing.T) {
	clearEnv(t, "ETGCATALOG_ENV")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := LoadWithEnvFile(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("env = %q", cfg.Env)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9002 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Catalog.Passes != 3 || cfg.Catalog.MaxSeconds != 55 || cfg.Catalog.TimeoutSeconds != 18 {
		t.Fatalf("catalog = %+v", cfg.Catalog)
	}
	if cfg.HTTP.Retries != 4 || cfg.HTTP.BackoffMS != 500 || cfg.HTTP.BackoffMaxMS != 8000 {
		t.Fatalf("http = %+v", cfg.HTTP)
	}
	if cfg.ETG.BaseURL != "https://engtechgroup.com" || cfg.ETG.FeatureType != "all" {
		t.Fatalf("etg = %+v", cfg.ETG)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("log = %+v", cfg.Log)
	}
}

func TestLoadProdDefaults(t *testing.T) {
	t.Setenv("ETGCATALOG_ENV", "prod")
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := LoadWithEnvFile(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "prod" || cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Fatalf("cfg = env %q log %+v", cfg.Env, cfg.Log)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t, "ETGCATALOG_ENV")
	t.Setenv("ETGCATALOG_SERVER_PORT", "7000")
	t.Setenv("ETGCATALOG_HTTP_RETRIES", "0")
	t.Setenv("ETGCATALOG_CATALOG_TIMEOUT_SECONDS", "2.5")
	t.Setenv("ETGCATALOG_ETG_BASE_URL", "http://localhost:9999/")
	path := writeFile(t, t.TempDir(), "config.yaml", sampleYAML)

	cfg, err := LoadWithEnvFile(path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.HTTP.Retries != 0 {
		t.Fatalf("retries = %d", cfg.HTTP.Retries)
	}
	if cfg.Catalog.TimeoutSeconds != 2.5 {
		t.Fatalf("timeout = %v", cfg.Catalog.TimeoutSeconds)
	}
	if cfg.ETG.BaseURL != "http://localhost:9999" {
		t.Fatalf("base url = %q", cfg.ETG.BaseURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t, "ETGCATALOG_ENV")
	clearEnv(t, "ETGCATALOG_CLI_OUTPUT_FILE")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)
	envFile := writeFile(t, dir, ".env", "ETGCATALOG_CLI_OUTPUT_FILE=out/snapshot.json\n")

	cfg, err := LoadWithEnvFile(path, envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CLI.OutputFile != "out/snapshot.json" {
		t.Fatalf("output file = %q", cfg.CLI.OutputFile)
	}
}

func TestLoadMissingDotEnvIgnored(t *testing.T) {
	clearEnv(t, "ETGCATALOG_ENV")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)

	if _, err := LoadWithEnvFile(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "unknown env", yaml: "env: staging\n", wantErr: "unknown env"},
		{name: "bad yaml", yaml: "env: [\n", wantErr: "parse"},
		{name: "relative base url", yaml: "env: local\nlocal:\n  etg:\n    base_url: engtechgroup.com\n", wantErr: "etg.base_url"},
		{name: "products path", yaml: "env: local\nlocal:\n  etg:\n    products_path: x.php\n", wantErr: "products_path"},
		{name: "port", yaml: "env: local\nlocal:\n  server:\n    port: 70000\n", wantErr: "server.port"},
		{name: "passes over max", yaml: "env: local\nlocal:\n  catalog:\n    passes: 9\n", wantErr: "max_passes"},
		{name: "log format", yaml: "env: local\nlocal:\n  log:\n    format: xml\n", wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, "ETGCATALOG_ENV")
			path := writeFile(t, t.TempDir(), "config.yaml", tt.yaml)

			_, err := LoadWithEnvFile(path, "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Fatal("expected error")
	}
}
