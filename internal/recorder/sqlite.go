package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"commodityapi/internal/fetcher"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists snapshots to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			fetcher_key       TEXT NOT NULL,
			symbol            TEXT NOT NULL,
			exchange          TEXT,
			price             REAL NOT NULL,
			currency          TEXT,
			change_percent    REAL,
			bid_price         REAL,
			ask_price         REAL,
			volume_24h        REAL,
			turnover_24h_usdt REAL,
			price_date        INTEGER,
			last_updated      INTEGER NOT NULL,
			source            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_key_ts ON price_snapshots(fetcher_key, last_updated)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot inserts one row into price_snapshots.
func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, key string, snap fetcher.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var priceDate *int64
	if snap.PriceDate != nil {
		ms := snap.PriceDate.UnixMilli()
		priceDate = &ms
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO price_snapshots (
		fetcher_key, symbol, exchange, price, currency, change_percent,
		bid_price, ask_price, volume_24h, turnover_24h_usdt,
		price_date, last_updated, source
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, snap.Symbol, snap.Exchange, snap.Price, snap.Currency, snap.ChangePercent,
		snap.BidPrice, snap.AskPrice, snap.Volume24h, snap.Turnover24h,
		priceDate, snap.LastUpdated.UnixMilli(), snap.Source,
	)
	if err != nil {
		return fmt.Errorf("insert price snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
