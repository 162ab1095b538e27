package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/raykavin/factorlab/pkg/logger"
	"github.com/tidwall/buntdb"
)

const (
	// DefaultIndexName is the default index used for run retrieval
	DefaultIndexName = "update_index"
)

// BuntStorage implements the Storage interface using BuntDB
type BuntStorage struct {
	lastID int64
	db     *buntdb.DB
}

// BuntConfig holds configuration options for BuntDB
type BuntConfig struct {
	// Additional indexes to create beyond the default update_index
	AdditionalIndexes map[string]string
	// SyncPolicy determines how often data is synchronized to disk
	SyncPolicy buntdb.SyncPolicy
}

// DefaultBuntConfig returns the default configuration for BuntDB
func DefaultBuntConfig() BuntConfig {
	return BuntConfig{
		AdditionalIndexes: make(map[string]string),
		SyncPolicy:        buntdb.Never,
	}
}

// NewFromMemory creates an in-memory storage with default configuration
func NewFromMemory() (Storage, error) {
	return NewBuntStorage(":memory:", DefaultBuntConfig())
}

// NewFromFile creates a file-based storage with default configuration
func NewFromFile(file string) (Storage, error) {
	return NewBuntStorage(file, DefaultBuntConfig())
}

// NewBuntStorage creates a new BuntDB storage instance with the specified configuration
func NewBuntStorage(sourceFile string, config BuntConfig) (Storage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	if err := db.SetConfig(buntdb.Config{
		SyncPolicy: config.SyncPolicy,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}

	// Default index orders runs by update timestamp
	if err := db.CreateIndex(DefaultIndexName, "*", buntdb.IndexJSON("updated_at")); err != nil {
		return nil, fmt.Errorf("failed to create default index: %w", err)
	}

	for name, pattern := range config.AdditionalIndexes {
		if err := db.CreateIndex(name, "*", buntdb.IndexJSON(pattern)); err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", name, err)
		}
	}

	return &BuntStorage{db: db}, nil
}

// getID generates a unique ID for runs
func (b *BuntStorage) getID() int64 {
	return atomic.AddInt64(&b.lastID, 1)
}

// CreateRun stores a new run in the database
func (b *BuntStorage) CreateRun(_ context.Context, run *RunRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		if run.ID == 0 {
			run.ID = b.getID()
		}

		content, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		key := strconv.FormatInt(run.ID, 10)
		if _, _, err = tx.Set(key, string(content), nil); err != nil {
			return fmt.Errorf("failed to store run: %w", err)
		}
		return nil
	})
}

// UpdateRun updates an existing run in the database
func (b *BuntStorage) UpdateRun(_ context.Context, run *RunRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		id := strconv.FormatInt(run.ID, 10)

		if _, err := tx.Get(id); err != nil {
			return fmt.Errorf("run not found: %w", err)
		}

		content, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		if _, _, err = tx.Set(id, string(content), nil); err != nil {
			return fmt.Errorf("failed to update run: %w", err)
		}
		return nil
	})
}

// Runs retrieves runs from the database based on provided filters
func (b *BuntStorage) Runs(_ context.Context, filters ...RunFilter) ([]*RunRecord, error) {
	runs := make([]*RunRecord, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		err := tx.Ascend(DefaultIndexName, func(key, value string) bool {
			var run RunRecord
			if err := json.Unmarshal([]byte(value), &run); err != nil {
				logger.Default().Warnf("failed to unmarshal run %s: %v", key, err)
				return true // continue iteration
			}

			if matchAll(run, filters) {
				runs = append(runs, &run)
			}
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to iterate over runs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	return runs, nil
}
