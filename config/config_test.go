package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/busdi/errors"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development with debug logging", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug logging, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production keeps info logging", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info logging, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func(env string) ServiceConfig {
		cfg := ServiceConfig{Name: "svc", Environment: env}
		cfg.ApplyDefaults()
		return cfg
	}
	invalidLogging := valid("staging")
	invalidLogging.Logging.Format = "xml"

	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid development", valid("development"), ""},
		{"valid production", valid("production"), ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
		{"invalid logging", invalidLogging, "config.logging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.IsInvalidArgument(err) {
				t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

type busSection struct {
	Host        string `mapstructure:"host"`
	VirtualHost string `mapstructure:"virtual_host"`
	Port        int    `mapstructure:"port"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Bus           busSection `mapstructure:"bus"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: orders
environment: staging
bus:
  host: rabbit.local
  port: 5673
`)

	var cfg testConfig
	if err := LoadConfig("orders", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "orders" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Bus.Host != "rabbit.local" || cfg.Bus.Port != 5673 {
		t.Errorf("unexpected bus section %+v", cfg.Bus)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "bus:\n  host: from-file\n")
	t.Setenv("BUS_HOST", "from-env")
	t.Setenv("BUS_VIRTUAL_HOST", "/orders")

	var cfg testConfig
	if err := LoadConfig("orders", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Bus.Host != "from-env" {
		t.Errorf("expected env to win, got %q", cfg.Bus.Host)
	}
	if cfg.Bus.VirtualHost != "/orders" {
		t.Errorf("expected virtual host from env, got %q", cfg.Bus.VirtualHost)
	}
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "BUSDI_TEST_BUS_HOST=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("BUSDI_TEST_BUS_HOST") })

	var cfg struct {
		Test struct {
			Bus busSection `mapstructure:"bus"`
		} `mapstructure:"busdi_test"`
	}
	if err := LoadConfig("orders", &cfg, WithConfigFile(filepath.Join(dir, "none.yml")), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Test.Bus.Host != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", cfg.Test.Bus.Host)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "bus: [unclosed\n")

	var cfg testConfig
	err := LoadConfig("orders", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if !errors.IsInvalidArgument(err) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestFinderSearchesServiceLocations(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"../cmd/orders/config.yml": true,
		"./config/.env":            true,
	}}
	finder := &Finder{FileSystem: fs}

	files := finder.Find("orders", LoaderConfig{})
	if files.ConfigFile != "../cmd/orders/config.yml" {
		t.Errorf("unexpected config file %q", files.ConfigFile)
	}
	if files.EnvFile != "./config/.env" {
		t.Errorf("unexpected env file %q", files.EnvFile)
	}

	files = finder.Find("orders", LoaderConfig{ConfigFile: "explicit.yml"})
	if files.ConfigFile != "explicit.yml" {
		t.Errorf("expected explicit path, got %q", files.ConfigFile)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("BUS_VIRTUAL_HOST")
	for _, want := range []string{"bus_virtual_host", "bus.virtual.host", "bus.virtual_host", "bus_virtual.host"} {
		if !slices.Contains(variants, want) {
			t.Errorf("missing variant %q in %v", want, variants)
		}
	}
	if got := envKeyVariants("HOST"); len(got) != 1 || got[0] != "host" {
		t.Errorf("unexpected variants %v", got)
	}
}

func TestOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	WithConfigFile("/c.yml")(&lc)
	WithEnvFile("/.env")(&lc)
	if lc.FileSystem != fs || lc.ConfigFile != "/c.yml" || lc.EnvFile != "/.env" {
		t.Errorf("unexpected loader config %+v", lc)
	}
}
