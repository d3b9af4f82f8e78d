package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Config holds the embedded database settings
type Config struct {
	Path       string `mapstructure:"path" yaml:"path"`
	InMemory   bool   `mapstructure:"in_memory" yaml:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes" yaml:"sync_writes"`
	// GCInterval of 0 disables value log garbage collection
	GCInterval     time.Duration `mapstructure:"gc_interval" yaml:"gc_interval"`
	GCDiscardRatio float64       `mapstructure:"gc_discard_ratio" yaml:"gc_discard_ratio"`
}

// InMemoryConfig returns a configuration for tests and throwaway deployments
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

func openDB(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(logger.Logger(context.Background()).WithField("component", "badger"))

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return db, nil
}

// gcRunner periodically reclaims value log space
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	log      *logrus.Entry
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64) (*gcRunner, error) {
	if interval <= 0 {
		return nil, errors.New("gc interval must be positive")
	}
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		log:      logger.Logger(context.Background()).WithField("component", "badger-gc"),
	}, nil
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.db.RunValueLogGC(r.ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.log.WithError(err).Warn("value log GC failed")
			}
		}
	}
}
