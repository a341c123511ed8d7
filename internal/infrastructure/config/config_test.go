package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_DefaultsWithEnvKey(t *testing.T) {
	t.Setenv("TRACKER_SIGN_KEY", "test-signing-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.JWT.AccessTokenMinutes != 5 {
		t.Errorf("AccessTokenMinutes = %d, want 5", cfg.Security.JWT.AccessTokenMinutes)
	}
	if cfg.Security.JWT.RefreshTokenMinutes != 10 {
		t.Errorf("RefreshTokenMinutes = %d, want 10", cfg.Security.JWT.RefreshTokenMinutes)
	}
	if cfg.Bootstrap.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q, want %q", cfg.Bootstrap.AdminUsername, "admin")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.API.Port)
	}
}

func TestLoad_MissingSignKey(t *testing.T) {
	t.Setenv("TRACKER_SIGN_KEY", "")

	_, err := Load("")
	if err == nil {
		t.Fatal("Load() should fail without a signing key")
	}
	if !strings.Contains(err.Error(), "TRACKER_SIGN_KEY") {
		t.Errorf("error %q should mention TRACKER_SIGN_KEY", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("TRACKER_SIGN_KEY", "test-signing-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /tmp/test.db
  wal_mode: true
  busy_timeout: 5
api:
  host: 127.0.0.1
  port: 9090
security:
  jwt:
    access_token_minutes: 2
    refresh_token_minutes: 20
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Security.JWT.AccessTokenMinutes != 2 {
		t.Errorf("AccessTokenMinutes = %d, want 2", cfg.Security.JWT.AccessTokenMinutes)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TRACKER_SIGN_KEY", "test-signing-key")
	t.Setenv("TRACKER_ACCESS_TOKEN_EXPIRE_MINUTES", "7")
	t.Setenv("TRACKER_ADMIN_USERNAME", "root")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.JWT.AccessTokenMinutes != 7 {
		t.Errorf("AccessTokenMinutes = %d, want 7", cfg.Security.JWT.AccessTokenMinutes)
	}
	if cfg.Bootstrap.AdminUsername != "root" {
		t.Errorf("AdminUsername = %q, want %q", cfg.Bootstrap.AdminUsername, "root")
	}
}

func TestValidate_MQTTEnabled(t *testing.T) {
	t.Setenv("TRACKER_SIGN_KEY", "test-signing-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.MQTT.Enabled = true
	cfg.MQTT.QoS = 3
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject qos 3")
	}
}
