// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/SapheneiaStudio/pkg/validation"
	"github.com/AleutianAI/SapheneiaStudio/services/studio/datatypes"
)

// Key layout:
//
//	record/<instance_id>/<code_hash>  -> record JSON (primary)
//	record_id/<record_id>             -> primary key bytes (index)
//
// Instance ids pass validation.ValidateIdentifier before they are spliced
// into a key, so a crafted id cannot forge another instance's prefix.
const (
	recordKeyPrefix = "record/"
	idKeyPrefix     = "record_id/"
)

// Config holds configuration for the Badger-backed store.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory enables in-memory mode (no disk persistence). For tests.
	InMemory bool

	// SyncWrites forces synchronous writes for durability.
	SyncWrites bool

	// Logger receives Badger's internal log lines. Nil disables them.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// 0 disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum discardable fraction before a value
	// log file is rewritten.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: durable writes and periodic GC.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a test configuration: no disk I/O, no GC.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore is the embedded persistent Store implementation.
//
// Thread Safety: safe for concurrent use; Badger transactions provide
// isolation and the store holds no mutable state of its own.
type BadgerStore struct {
	db *badger.DB
	gc *GCRunner
}

// OpenBadger opens (creating if needed) a Badger-backed store.
//
// Description:
//
//	Opens the database at cfg.Path, or in memory when cfg.InMemory is
//	set, and starts the GC runner when an interval is configured. The
//	caller owns the store and must Close it.
func OpenBadger(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	store := &BadgerStore{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		runner, err := NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create GC runner: %w", err)
		}
		store.gc = runner
		runner.Start()
	}
	return store, nil
}

// Close stops GC and closes the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	if s.gc != nil {
		s.gc.Stop()
	}
	return s.db.Close()
}

// Save implements Store.
func (s *BadgerStore) Save(ctx context.Context, record *datatypes.CodeGenerationRecord) error {
	if err := checkRecordKeys(record); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.RecordID, err)
	}

	primary := recordKey(record.InstanceID, record.CodeHash)
	return s.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		return txn.Set(idKey(record.RecordID), primary)
	})
}

// FindByHash implements Store.
func (s *BadgerStore) FindByHash(ctx context.Context, instanceID, codeHash string) (*datatypes.CodeGenerationRecord, error) {
	if err := validation.ValidateIdentifier(instanceID); err != nil {
		return nil, fmt.Errorf("instance id: %w", err)
	}

	var record *datatypes.CodeGenerationRecord
	err := s.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(instanceID, codeHash))
		if err != nil {
			return err
		}
		record, err = decodeRecordItem(item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("instance %q hash %s: %w", instanceID, codeHash, ErrRecordNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByInstance implements Store.
//
// Badger iterates in key order, which for this layout is hash order, so the
// whole prefix is collected and then sorted newest first. Generation counts
// per instance are small; the full scan is cheaper than maintaining a
// by-time index.
func (s *BadgerStore) ListByInstance(ctx context.Context, instanceID string, limit int) ([]*datatypes.CodeGenerationRecord, error) {
	if err := validation.ValidateIdentifier(instanceID); err != nil {
		return nil, fmt.Errorf("instance id: %w", err)
	}

	var records []*datatypes.CodeGenerationRecord
	prefix := []byte(recordKeyPrefix + instanceID + "/")

	err := s.WithReadTxn(ctx, func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			record, err := decodeRecordItem(it.Item())
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *datatypes.CodeGenerationRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, recordID string) (*datatypes.CodeGenerationRecord, error) {
	if err := validation.ValidateIdentifier(recordID); err != nil {
		return nil, fmt.Errorf("record id: %w", err)
	}

	var record *datatypes.CodeGenerationRecord
	err := s.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(recordID))
		if err != nil {
			return err
		}
		primary, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		primaryItem, err := txn.Get(primary)
		if err != nil {
			return err
		}
		record, err = decodeRecordItem(primaryItem)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("record %q: %w", recordID, ErrRecordNotFound)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// WithTxn runs fn in a read-write transaction, committing when fn returns
// nil and discarding otherwise.
func (s *BadgerStore) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// WithReadTxn runs fn in a read-only transaction.
func (s *BadgerStore) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	txn := s.db.NewTransaction(false)
	defer txn.Discard()
	return fn(txn)
}

// checkRecordKeys rejects records whose identity fields cannot be spliced
// safely into store keys.
func checkRecordKeys(record *datatypes.CodeGenerationRecord) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if err := validation.ValidateIdentifier(record.RecordID); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	if err := validation.ValidateIdentifier(record.InstanceID); err != nil {
		return fmt.Errorf("instance id: %w", err)
	}
	if !isHexHash(record.CodeHash) {
		return fmt.Errorf("code hash %q is not a 64-char lowercase hex digest", record.CodeHash)
	}
	return nil
}

// isHexHash reports whether s is a lowercase hex SHA-256 digest.
func isHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func recordKey(instanceID, codeHash string) []byte {
	return []byte(recordKeyPrefix + instanceID + "/" + codeHash)
}

func idKey(recordID string) []byte {
	return []byte(idKeyPrefix + recordID)
}

// decodeRecordItem unmarshals a record out of a Badger item.
func decodeRecordItem(item *badger.Item) (*datatypes.CodeGenerationRecord, error) {
	var record datatypes.CodeGenerationRecord
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("decode record at %s: %w", item.Key(), err)
	}
	return &record, nil
}

// GCRunner periodically triggers Badger value log garbage collection.
type GCRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewGCRunner creates a runner; Start begins collection, Stop halts it.
func NewGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) (*GCRunner, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if ratio < 0 || ratio > 1 {
		return nil, errors.New("ratio must be between 0 and 1")
	}

	r := &GCRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	return r, nil
}

// Start launches the GC goroutine.
func (r *GCRunner) Start() {
	go r.run()
}

// Stop signals the goroutine and waits for it to exit. Safe to call more
// than once.
func (r *GCRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *GCRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.collect()
		}
	}
}

// collect runs one GC pass. badger.ErrNoRewrite means nothing needed
// collecting and is not an error.
func (r *GCRunner) collect() {
	err := r.db.RunValueLogGC(r.ratio)
	switch {
	case err == nil:
		if r.logger != nil {
			r.logger.Debug("badger value log GC completed")
		}
	case !errors.Is(err, badger.ErrNoRewrite):
		if r.logger != nil {
			r.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
		}
	}
}

// TempDir creates a throwaway directory for store tests.
func TempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// CleanupDir removes a test database directory. Empty path is a no-op.
func CleanupDir(path string) error {
	if path == "" {
		return nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return os.RemoveAll(absPath)
}
