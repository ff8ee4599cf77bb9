package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// Sepolia test deployments of the two tracked tokens.
	DefaultDAIAddress  = "0x1D70D57ccD2798323232B2dD027B3aBcA5C00091"
	DefaultUSDCAddress = "0xC891481A0AaC630F4D89744ccD2C7D2C4215FD47"

	StorageBackendBolt   = "bolt"
	StorageBackendSQLite = "sqlite"
)

type Config struct {
	RPCURL         string
	HTTPAddr       string
	StorageBackend string
	DBPath         string
	SaveDebounce   time.Duration
	DAIAddress     string
	USDCAddress    string
	KafkaBrokers   []string
	KafkaTopic     string
	OtelEndpoint   string
	LogLevel       string
	LogFile        string
	LogMaxSizeMB   int
	LogMaxBackups  int
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	rpcURL, ok := source.Lookup("RPC_URL")
	if !ok || strings.TrimSpace(rpcURL) == "" {
		return Config{}, errors.New("RPC_URL is required")
	}

	httpAddr := lookupDefault(source, "HTTP_ADDR", ":8080")

	backend := strings.ToLower(lookupDefault(source, "STORAGE_BACKEND", StorageBackendBolt))
	if backend != StorageBackendBolt && backend != StorageBackendSQLite {
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND: %s", backend)
	}

	dbPath := lookupDefault(source, "DB_PATH", "./data/walletlog.db")

	saveDebounce := 300 * time.Millisecond
	if raw, ok := source.Lookup("SAVE_DEBOUNCE"); ok && raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			return Config{}, fmt.Errorf("invalid SAVE_DEBOUNCE: %s", raw)
		}
		saveDebounce = duration
	}

	kafkaBrokers := splitList(lookupDefault(source, "KAFKA_BROKERS", ""))

	logMaxSize, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 0)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 0)
	if err != nil {
		return Config{}, err
	}

	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")

	return Config{
		RPCURL:         strings.TrimSpace(rpcURL),
		HTTPAddr:       httpAddr,
		StorageBackend: backend,
		DBPath:         dbPath,
		SaveDebounce:   saveDebounce,
		DAIAddress:     lookupDefault(source, "DAI_ADDRESS", DefaultDAIAddress),
		USDCAddress:    lookupDefault(source, "USDC_ADDRESS", DefaultUSDCAddress),
		KafkaBrokers:   kafkaBrokers,
		KafkaTopic:     lookupDefault(source, "KAFKA_TOPIC", "walletlog-activity"),
		OtelEndpoint:   strings.TrimSpace(otelEndpoint),
		LogLevel:       lookupDefault(source, "LOG_LEVEL", "info"),
		LogFile:        lookupDefault(source, "LOG_FILE", ""),
		LogMaxSizeMB:   logMaxSize,
		LogMaxBackups:  logMaxBackups,
	}, nil
}

func lookupDefault(source EnvSource, key, defaultValue string) string {
	if raw, ok := source.Lookup(key); ok && strings.TrimSpace(raw) != "" {
		return strings.TrimSpace(raw)
	}
	return defaultValue
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(item); value != "" {
			values = append(values, value)
		}
	}
	return values
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
