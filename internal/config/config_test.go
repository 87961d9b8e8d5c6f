package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.StoreBackend != StoreBackendFile {
		t.Errorf("StoreBackend = %q, want %q", cfg.StoreBackend, StoreBackendFile)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "data")
	}
	if cfg.SessionBackend != SessionBackendMemory {
		t.Errorf("SessionBackend = %q, want %q", cfg.SessionBackend, SessionBackendMemory)
	}
	if cfg.CodeLength != 6 {
		t.Errorf("CodeLength = %d, want 6", cfg.CodeLength)
	}
	if cfg.JWTIssuer != "employee-access" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "employee-access")
	}
	if cfg.JWTAudience != "employee-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "employee-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("STORE_BACKEND", "postgres")
	os.Setenv("DATABASE_URL", "postgres://localhost/access")
	os.Setenv("CODE_LENGTH", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.StoreBackend != StoreBackendPostgres {
		t.Errorf("StoreBackend = %q, want %q", cfg.StoreBackend, StoreBackendPostgres)
	}
	if cfg.CodeLength != 8 {
		t.Errorf("CodeLength = %d, want 8", cfg.CodeLength)
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	os.Clearenv()
	os.Setenv("STORE_BACKEND", "postgres")

	if _, err := Load(); err == nil {
		t.Error("Load should fail for postgres backend without DATABASE_URL")
	}
}

func TestLoad_UnknownStoreBackend(t *testing.T) {
	os.Clearenv()
	os.Setenv("STORE_BACKEND", "cassandra")

	if _, err := Load(); err == nil {
		t.Error("Load should fail for an unknown STORE_BACKEND")
	}
}

func TestLoad_RedisRequiresAddr(t *testing.T) {
	os.Clearenv()
	os.Setenv("SESSION_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Error("Load should fail for redis session backend without REDIS_ADDR")
	}
}

func TestLoad_CodeLengthBounds(t *testing.T) {
	for _, bad := range []string{"5", "9", "0"} {
		os.Clearenv()
		os.Setenv("CODE_LENGTH", bad)
		if _, err := Load(); err == nil {
			t.Errorf("Load should fail for CODE_LENGTH=%s", bad)
		}
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "30m", CodeTTL: "5m", SessionTTL: "1h"}
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
	if got := cfg.CodeExpiry(); got != 5*time.Minute {
		t.Errorf("CodeExpiry = %v, want 5m", got)
	}
	if got := cfg.SessionExpiry(); got != time.Hour {
		t.Errorf("SessionExpiry = %v, want 1h", got)
	}

	empty := &Config{}
	if got := empty.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", got)
	}
	if got := empty.CodeExpiry(); got != 10*time.Minute {
		t.Errorf("CodeExpiry fallback = %v, want 10m", got)
	}
	if got := empty.SessionExpiry(); got != 24*time.Hour {
		t.Errorf("SessionExpiry fallback = %v, want 24h", got)
	}
}
