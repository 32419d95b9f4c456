// Etiquette
// Copyright (c) 2026 The Etiquette Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Etiquette.
//
// Etiquette is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etiquette is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Etiquette.  If not, see <http://www.gnu.org/licenses/>.

// Package photodb is the catalog store: photos, tags, albums, bookmarks and
// users over a single SQLite file, with nested savepoint transactions,
// deferred filesystem side effects, per-type identity caches and the search
// engine.
package photodb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/voussoir/etiquette/pkg/config"
	"github.com/voussoir/etiquette/pkg/database"
	"github.com/voussoir/etiquette/pkg/helpers/syncutil"
	"github.com/voussoir/etiquette/pkg/media"
)

// DatabaseVersion is stamped into PRAGMA user_version. Opening a database
// with a different stamp fails with DatabaseOutOfDate.
const DatabaseVersion = 1

// ErrNullSQL is returned when an operation runs against a closed store.
var ErrNullSQL = errors.New("PhotoDB is not connected")

const sqliteConnParams = "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"

// PhotoDB is the facade over the catalog store. One instance owns one
// connection; writes serialize at the transaction boundary.
type PhotoDB struct {
	sql     *sql.DB
	cfg     *config.Instance
	clock   clockwork.Clock
	toolkit media.Toolkit
	dataDir string

	// txnMu is held from the outermost savepoint until the transaction
	// ends, serializing writers.
	txnMu syncutil.Mutex

	frames       []txnFrame
	rootCommit   []deferredAction
	rootRollback []deferredAction
	inTxn        bool
	commitCount  int64

	caches    *objectCaches
	exports   *exportCache
	albumSums map[int64]albumSumMemo

	skipVersionCheck bool
}

// Option configures Open.
type Option func(*PhotoDB)

// WithClock injects a clock; tests use a fake to control timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(db *PhotoDB) { db.clock = clock }
}

// WithToolkit injects the media toolkit used for probes and video
// thumbnails.
func WithToolkit(toolkit media.Toolkit) Option {
	return func(db *PhotoDB) { db.toolkit = toolkit }
}

// WithSkipVersionCheck opens a database whose user_version does not match
// DatabaseVersion. Intended for maintenance tooling only.
func WithSkipVersionCheck() Option {
	return func(db *PhotoDB) { db.skipVersionCheck = true }
}

// WithConfig uses an already-loaded config instance instead of loading
// config.json from the data directory.
func WithConfig(cfg *config.Instance) Option {
	return func(db *PhotoDB) { db.cfg = cfg }
}

// Open opens (or first-time creates) the catalog in a data directory.
func Open(ctx context.Context, dataDir string, opts ...Option) (*PhotoDB, error) {
	db := &PhotoDB{
		dataDir: dataDir,
		clock:   clockwork.NewRealClock(),
		toolkit: media.NewFFmpegToolkit(),
	}
	for _, opt := range opts {
		opt(db)
	}

	if db.cfg == nil {
		cfg, err := config.New(dataDir, config.BaseDefaults)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		db.cfg = cfg
	}

	if err := db.open(ctx); err != nil {
		return nil, err
	}

	db.caches = newObjectCaches(db.cfg.CacheSizes())
	db.exports = newExportCache()
	db.albumSums = make(map[int64]albumSumMemo)
	return db, nil
}

func (db *PhotoDB) open(ctx context.Context) error {
	dbPath := db.DBPath()
	exists := true
	if _, err := os.Stat(dbPath); err != nil {
		exists = false
		if mkdirErr := os.MkdirAll(filepath.Dir(dbPath), 0o750); mkdirErr != nil {
			return fmt.Errorf("failed to create directory for database: %w", mkdirErr)
		}
	}

	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// savepoint bookkeeping assumes every statement runs on one connection
	sqlInstance.SetMaxOpenConns(1)
	db.sql = sqlInstance

	if !exists {
		if err := db.Allocate(); err != nil {
			return err
		}
		return sqlSetUserVersion(ctx, db.sql, DatabaseVersion)
	}

	version, err := sqlGetUserVersion(ctx, db.sql)
	if err != nil {
		return err
	}
	if version != DatabaseVersion && !db.skipVersionCheck {
		return database.DatabaseOutOfDate(version, DatabaseVersion)
	}
	return nil
}

// DBPath returns the SQLite file path inside the data directory.
func (db *PhotoDB) DBPath() string {
	return filepath.Join(db.dataDir, config.DatabaseFile)
}

// DataDir returns the catalog's data directory.
func (db *PhotoDB) DataDir() string {
	return db.dataDir
}

// ThumbnailDir returns the root of the thumbnail tree.
func (db *PhotoDB) ThumbnailDir() string {
	return filepath.Join(db.dataDir, config.ThumbnailDir)
}

// Config returns the loaded config instance.
func (db *PhotoDB) Config() *config.Instance {
	return db.cfg
}

// UnsafeGetSQLDb exposes the raw connection for maintenance tooling.
func (db *PhotoDB) UnsafeGetSQLDb() *sql.DB {
	return db.sql
}

// Allocate applies the full schema to a fresh database.
func (db *PhotoDB) Allocate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

// Truncate empties every table. The identity caches are dropped with it.
func (db *PhotoDB) Truncate(ctx context.Context) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if err := sqlTruncate(ctx, db.sql); err != nil {
		return err
	}
	db.UncacheAll()
	return nil
}

// Vacuum reclaims free pages.
func (db *PhotoDB) Vacuum(ctx context.Context) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlVacuum(ctx, db.sql)
}

// IntegrityCheck runs SQLite's integrity pass and returns its verdict.
func (db *PhotoDB) IntegrityCheck(ctx context.Context) (string, error) {
	if db.sql == nil {
		return "", ErrNullSQL
	}
	return sqlIntegrityCheck(ctx, db.sql)
}

// Close closes the store. An open transaction is rolled back first.
func (db *PhotoDB) Close() error {
	if db.sql == nil {
		return nil
	}
	if db.inTxn {
		log.Warn().Msg("closing PhotoDB with an open transaction, rolling back")
		if err := db.Rollback(context.Background()); err != nil {
			log.Warn().Err(err).Msg("rollback during close failed")
		}
	}
	err := db.sql.Close()
	db.sql = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// CommitCount returns the number of outermost commits performed so far.
// Memoized derivations compare against it to detect staleness.
func (db *PhotoDB) CommitCount() int64 {
	return db.commitCount
}

// UncacheAll drops every identity-cached object and derivation.
func (db *PhotoDB) UncacheAll() {
	db.caches.clear()
	db.exports.invalidate()
	db.albumSums = make(map[int64]albumSumMemo)
}

// now returns the clock's current time as epoch seconds.
func (db *PhotoDB) now() float64 {
	t := db.clock.Now().UTC()
	return float64(t.UnixMicro()) / 1e6
}

// requireFeature gates write operations behind the enable_feature config.
func (db *PhotoDB) requireFeature(feature string) error {
	if db.cfg.FeatureEnabled(feature) {
		return nil
	}
	return database.FeatureDisabled(feature)
}
