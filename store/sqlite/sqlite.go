/*
Package sqlite stores scripts and candle history in a SQLite database.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/fetch"
	"github.com/npillmayer/chartscript/store"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'chartscript.store'.
func tracer() tracing.Trace {
	return tracing.Select("chartscript.store")
}

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to the database file, e.g. "data/chartscript.db"
}

// Store keeps scripts and candles in SQLite.
type Store struct {
	db *sql.DB
}

var _ store.Scripts = (*Store)(nil)
var _ fetch.HistoryReader = (*Store)(nil)

// New opens the database in WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	tracer().Infof("opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scripts (
			key     TEXT PRIMARY KEY,
			origin  TEXT NOT NULL DEFAULT '',
			source  TEXT NOT NULL,
			visible INTEGER NOT NULL DEFAULT 1,
			inputs  TEXT NOT NULL DEFAULT '{}',
			styles  TEXT NOT NULL DEFAULT '{}',
			updated INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT    NOT NULL,
			period TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL    NOT NULL,
			PRIMARY KEY (symbol, period, ts)
		);
	`)
	return err
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a script record.
func (s *Store) Save(ctx context.Context, r store.Record) error {
	inputs, err := json.Marshal(orEmpty(r.Inputs))
	if err != nil {
		return err
	}
	styles, err := json.Marshal(orEmpty(r.Styles))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scripts (key, origin, source, visible, inputs, styles)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Key, r.Origin, r.Source, r.Visible, string(inputs), string(styles))
	if err != nil {
		return fmt.Errorf("sqlite save %s: %w", r.Key, err)
	}
	return nil
}

func orEmpty(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// Load reads the record of key.
func (s *Store) Load(ctx context.Context, key string) (store.Record, error) {
	r := store.Record{Key: key}
	var inputs, styles string
	err := s.db.QueryRowContext(ctx, `
		SELECT origin, source, visible, inputs, styles FROM scripts WHERE key = ?
	`, key).Scan(&r.Origin, &r.Source, &r.Visible, &inputs, &styles)
	if err == sql.ErrNoRows {
		return store.Record{}, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("sqlite load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(inputs), &r.Inputs); err != nil {
		return store.Record{}, fmt.Errorf("sqlite load %s inputs: %w", key, err)
	}
	if err := json.Unmarshal([]byte(styles), &r.Styles); err != nil {
		return store.Record{}, fmt.Errorf("sqlite load %s styles: %w", key, err)
	}
	return r, nil
}

// Delete removes the record of key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE key = ?`, key)
	return err
}

// Keys lists all keys, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM scripts ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query scripts: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// WriteCandles inserts or replaces candles in one transaction.
func (s *Store) WriteCandles(ctx context.Context, symbol, period string, candles []chart.Candle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, period, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, period, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ReadCandles reads the most recent limit candles of a symbol and period,
// oldest first. limit <= 0 reads all.
func (s *Store) ReadCandles(ctx context.Context, symbol, period string, limit int) ([]chart.Candle, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume FROM (
			SELECT ts, open, high, low, close, volume
			FROM candles
			WHERE symbol = ? AND period = ?
			ORDER BY ts DESC
			LIMIT ?
		) ORDER BY ts ASC
	`, symbol, period, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()
	var candles []chart.Candle
	for rows.Next() {
		var c chart.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
