package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"walletlog/internal/application"
	"walletlog/internal/config"
	"walletlog/internal/domain"
	"walletlog/internal/infrastructure/boltkv"
	"walletlog/internal/infrastructure/chainquery"
	"walletlog/internal/infrastructure/kafkastream"
	"walletlog/internal/infrastructure/logging"
	"walletlog/internal/infrastructure/sqlitekv"
	"walletlog/internal/infrastructure/telemetry"
	"walletlog/internal/interfaces/httpapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// backendStore is what both storage adapters provide beyond the plain
// key-value contract.
type backendStore interface {
	application.KeyValueStore
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logWriter, err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if logWriter != nil {
		defer logWriter.Close()
	}

	slog.Info("starting walletlog server",
		"version", version,
		"commit", commit,
		"build_time", buildTime,
		"storage_backend", cfg.StorageBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "walletlog-server", cfg.OtelEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	storage, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()

	chain, err := chainquery.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer chain.Close()

	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("build token registry: %w", err)
	}

	metrics := httpapi.NewMetrics()

	history := application.NewHistoryStore(storage, metrics, application.HistoryConfig{
		SaveDebounce: cfg.SaveDebounce,
	})
	history.Initialize(ctx)
	metrics.SetHistorySize(len(history.Records()))
	defer history.Close()

	receipts := application.NewReceiptCache(chain, metrics)

	balances, err := application.NewBalanceService(chain, registry)
	if err != nil {
		return fmt.Errorf("build balance service: %w", err)
	}

	var publisher httpapi.ActivityPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafkastream.NewProducer(kafkastream.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			slog.Warn("kafka disabled", "error", err)
		} else {
			defer producer.Close()
			publisher = producer
			slog.Info("kafka activity stream enabled", "topic", cfg.KafkaTopic)
		}
	}

	server, err := httpapi.NewServer(cfg, history, receipts, balances, chain, storage, publisher, registry, metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}

	slog.Info("http server listening", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func openStorage(cfg config.Config) (backendStore, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendSQLite:
		return sqlitekv.Open(cfg.DBPath)
	default:
		return boltkv.Open(cfg.DBPath)
	}
}

func buildRegistry(cfg config.Config) (*domain.Registry, error) {
	if !common.IsHexAddress(cfg.DAIAddress) {
		return nil, fmt.Errorf("invalid DAI address: %s", cfg.DAIAddress)
	}
	if !common.IsHexAddress(cfg.USDCAddress) {
		return nil, fmt.Errorf("invalid USDC address: %s", cfg.USDCAddress)
	}
	return domain.NewRegistry(
		domain.Token{Symbol: domain.TokenDAI, Address: common.HexToAddress(cfg.DAIAddress), Decimals: 18},
		domain.Token{Symbol: domain.TokenUSDC, Address: common.HexToAddress(cfg.USDCAddress), Decimals: 6},
	), nil
}
