package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir moves the test into an empty directory so no stray .env is read.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// --- DefaultConfig ---

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Path != "hera.db" {
		t.Errorf("Database.Path = %s, want hera.db", cfg.Database.Path)
	}
	if cfg.Limits.RawTransactionRows != 50 {
		t.Errorf("RawTransactionRows = %d, want 50", cfg.Limits.RawTransactionRows)
	}
	if cfg.Ledger.DefaultWindow != 30*24*time.Hour {
		t.Errorf("DefaultWindow = %s, want 720h", cfg.Ledger.DefaultWindow)
	}
	if cfg.Ledger.StrictSmartCodes {
		t.Error("StrictSmartCodes should default to false")
	}
	if got := cfg.Tolerance().String(); got != "0.02" {
		t.Errorf("Tolerance = %s, want 0.02", got)
	}
}

// --- Load ---

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "hera.yaml")
	yaml := `
database:
  path: /var/lib/hera/data.db
limits:
  entity_default: 20
  entity_max: 200
ledger:
  tolerance: "0.05"
  default_window: 168h
  strict_smart_codes: true
logging:
  format: console
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/hera/data.db" {
		t.Errorf("Database.Path = %s", cfg.Database.Path)
	}
	if cfg.Limits.EntityDefault != 20 || cfg.Limits.EntityMax != 200 {
		t.Errorf("entity limits = %d/%d, want 20/200", cfg.Limits.EntityDefault, cfg.Limits.EntityMax)
	}
	if cfg.Limits.TransactionMax != 1000 {
		t.Errorf("unset limit lost its default: TransactionMax = %d", cfg.Limits.TransactionMax)
	}
	if cfg.Ledger.DefaultWindow != 168*time.Hour {
		t.Errorf("DefaultWindow = %s, want 168h", cfg.Ledger.DefaultWindow)
	}
	if !cfg.Ledger.StrictSmartCodes {
		t.Error("StrictSmartCodes should be true")
	}
	if got := cfg.Tolerance().String(); got != "0.05" {
		t.Errorf("Tolerance = %s, want 0.05", got)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "hera.yaml")
	if err := os.WriteFile(path, []byte("limits: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("HERA_DB_PATH", "/tmp/env.db")
	t.Setenv("HERA_LOG_LEVEL", "DEBUG")
	t.Setenv("HERA_LOG_FORMAT", "console")
	t.Setenv("HERA_HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("HERA_STRICT_SMART_CODES", "true")
	t.Setenv("HERA_NODE_ID", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %s", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("HTTPAddr = %s", cfg.Server.HTTPAddr)
	}
	if !cfg.Ledger.StrictSmartCodes {
		t.Error("StrictSmartCodes should be true")
	}
	if cfg.NodeID != 7 {
		t.Errorf("NodeID = %d, want 7", cfg.NodeID)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdir(t)
	t.Setenv("HERA_DB_PATH", "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HERA_DB_PATH=/from/dotenv.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides a variable that is already set, even empty.
	os.Unsetenv("HERA_DB_PATH")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/from/dotenv.db" {
		t.Errorf("Database.Path = %s, want /from/dotenv.db", cfg.Database.Path)
	}
}

func TestLoad_BadEnvValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HERA_STRICT_SMART_CODES", "sometimes"},
		{"HERA_NODE_ID", "first"},
		{"HERA_NODE_ID", "4096"},
		{"HERA_LOG_LEVEL", "loud"},
		{"HERA_HTTP_ADDR", "no-port"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			chdir(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("expected %s=%s to be rejected", tt.key, tt.value)
			}
		})
	}
}

// --- Validate ---

func TestValidate_LimitRelations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.EntityDefault = cfg.Limits.EntityMax + 1
	if err := cfg.Validate(); err == nil {
		t.Error("default above max should be rejected")
	}

	cfg = DefaultConfig()
	cfg.Limits.RelationshipLevel2 = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero level-2 cap should be rejected")
	}

	cfg = DefaultConfig()
	cfg.Ledger.Tolerance = "a cent"
	if err := cfg.Validate(); err == nil {
		t.Error("non-numeric tolerance should be rejected")
	}

	cfg = DefaultConfig()
	cfg.Database.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty database path should be rejected")
	}
}

func TestValidate_Tolerance(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"0.02", true},
		{"0.5", true},
		{"0", true},
		{"-0.01", false},
		{"1e-2", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Ledger.Tolerance = tt.value
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("tolerance %q rejected: %v", tt.value, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("tolerance %q should be rejected", tt.value)
			}
		})
	}
}

func TestLoad_ZeroToleranceIsKept(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "hera.yaml")
	if err := os.WriteFile(path, []byte("ledger:\n  tolerance: \"0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Tolerance().IsZero() {
		t.Errorf("Tolerance = %s, want 0", cfg.Tolerance())
	}
}
