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
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
db:
  host: localhost
  port: 5432
jwt:
  secret: s3cret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != ":8080" || cfg.App.Timezone != "UTC" || cfg.Log.Level != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.TokenTTL() != 24*time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.TokenTTL())
	}
	if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
		t.Fatalf("db not decoded: %+v", cfg.DB)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("APP_TIMEZONE", "Europe/Berlin")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	path := writeConfig(t, `
db:
  host: localhost
app:
  timezone: UTC
jwt:
  secret: from-file
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.Host != "db.internal" || cfg.JWT.Secret != "from-env" || cfg.Log.Level != "debug" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("Location = %v, %v", loc, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_TIMEZONE", "")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "app:\n  timezone: Mars/Olympus\njwt:\n  secret: x\n")); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
	if _, err := Load(writeConfig(t, "server:\n  port: \":9000\"\n")); err == nil {
		t.Fatalf("expected error for missing jwt secret")
	}
}
