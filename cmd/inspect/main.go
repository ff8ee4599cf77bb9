package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"walletlog/internal/application"
	"walletlog/internal/config"
	"walletlog/internal/infrastructure/boltkv"
	"walletlog/internal/infrastructure/sqlitekv"
)

// inspect prints (or clears) the persisted history envelope without going
// through the server.
func main() {
	var (
		dbPath  = flag.String("db", "./data/walletlog.db", "storage file path")
		backend = flag.String("backend", config.StorageBackendBolt, "storage backend: bolt or sqlite")
		key     = flag.String("key", application.DefaultStorageKey, "storage key to inspect")
		clear   = flag.Bool("clear", false, "delete the envelope instead of printing it")
	)
	flag.Parse()

	if err := run(*dbPath, *backend, *key, *clear); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

func run(dbPath, backend, key string, clear bool) error {
	store, err := openStorage(backend, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if clear {
		if err := store.Delete(ctx, key); err != nil {
			return err
		}
		fmt.Println("deleted", key)
		return nil
	}

	blob, ok, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no envelope at", key)
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, blob, "", "  "); err != nil {
		// Not JSON, dump raw.
		fmt.Println(string(blob))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func openStorage(backend, dbPath string) (storage, error) {
	switch backend {
	case config.StorageBackendSQLite:
		return sqlitekv.Open(dbPath)
	case config.StorageBackendBolt:
		return boltkv.Open(dbPath)
	default:
		return nil, fmt.Errorf("invalid backend: %s", backend)
	}
}
