package core

import (
	"context"
	"fmt"

	"salescore/internal/blob"
	"salescore/internal/infra/persistence/blobsnap"
	"salescore/internal/infra/persistence/jsonfile"
	"salescore/internal/infra/persistence/memory"
	"salescore/internal/infra/persistence/postgres"
	"salescore/internal/infra/persistence/sqlite"
	"salescore/pkg/domain"
)

// StorageDriver identifies a concrete snapshot store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageJSON     StorageDriver = "json"     // single JSON document (default)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // versioned objects in a blob store
)

// StorageConfig selects and configures the snapshot store.
type StorageConfig struct {
	Driver      StorageDriver `yaml:"driver"`
	JSONPath    string        `yaml:"json_path"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	Blob        BlobConfig    `yaml:"blob"`
}

// BlobConfig configures the blob snapshot driver.
type BlobConfig struct {
	blob.Config `yaml:",inline"`
	Prefix      string `yaml:"prefix"`
	Retain      int    `yaml:"retain"`
}

// OpenSnapshotStore constructs the configured store. An empty driver means
// the JSON file store.
func OpenSnapshotStore(ctx context.Context, cfg StorageConfig) (domain.SnapshotStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageJSON
	}
	switch driver {
	case StorageMemory:
		return memory.New(), nil
	case StorageJSON:
		s, err := jsonfile.New(cfg.JSONPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageSQLite:
		s, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob.Config)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		s, err := blobsnap.New(blobs, blobsnap.Options{Prefix: cfg.Blob.Prefix, Retain: cfg.Blob.Retain})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
