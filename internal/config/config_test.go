package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(EnvMap{"RPC_URL": "https://rpc.example.org"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr, got %s", cfg.HTTPAddr)
	}
	if cfg.StorageBackend != StorageBackendBolt {
		t.Errorf("expected bolt backend, got %s", cfg.StorageBackend)
	}
	if cfg.SaveDebounce != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %s", cfg.SaveDebounce)
	}
	if cfg.DAIAddress != DefaultDAIAddress || cfg.USDCAddress != DefaultUSDCAddress {
		t.Error("expected default token addresses")
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("expected kafka disabled by default, got %v", cfg.KafkaBrokers)
	}
}

func TestLoad_RequiresRPCURL(t *testing.T) {
	if _, err := Load(EnvMap{}); err == nil {
		t.Error("expected error without RPC_URL")
	}
	if _, err := Load(EnvMap{"RPC_URL": "  "}); err == nil {
		t.Error("expected error for blank RPC_URL")
	}
}

func TestLoad_StorageBackend(t *testing.T) {
	cfg, err := Load(EnvMap{"RPC_URL": "x", "STORAGE_BACKEND": "SQLite"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != StorageBackendSQLite {
		t.Errorf("expected sqlite, got %s", cfg.StorageBackend)
	}

	if _, err := Load(EnvMap{"RPC_URL": "x", "STORAGE_BACKEND": "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestLoad_SaveDebounce(t *testing.T) {
	cfg, err := Load(EnvMap{"RPC_URL": "x", "SAVE_DEBOUNCE": "2s"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SaveDebounce != 2*time.Second {
		t.Errorf("expected 2s, got %s", cfg.SaveDebounce)
	}

	for _, bad := range []string{"fast", "-1s", "0"} {
		if _, err := Load(EnvMap{"RPC_URL": "x", "SAVE_DEBOUNCE": bad}); err == nil {
			t.Errorf("expected error for SAVE_DEBOUNCE=%q", bad)
		}
	}
}

func TestLoad_KafkaBrokers(t *testing.T) {
	cfg, err := Load(EnvMap{"RPC_URL": "x", "KAFKA_BROKERS": "broker1:9092, broker2:9092 ,"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "broker1:9092" || cfg.KafkaBrokers[1] != "broker2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
}

func TestLoad_LogSettings(t *testing.T) {
	cfg, err := Load(EnvMap{
		"RPC_URL":         "x",
		"LOG_LEVEL":       "debug",
		"LOG_FILE":        "/var/log/walletlog.log",
		"LOG_MAX_SIZE_MB": "64",
		"LOG_MAX_BACKUPS": "3",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogMaxSizeMB != 64 || cfg.LogMaxBackups != 3 {
		t.Errorf("unexpected log settings: %+v", cfg)
	}

	if _, err := Load(EnvMap{"RPC_URL": "x", "LOG_MAX_SIZE_MB": "big"}); err == nil {
		t.Error("expected error for non-numeric LOG_MAX_SIZE_MB")
	}
}
