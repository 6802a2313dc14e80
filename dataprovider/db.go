// File: dataprovider/db.go
package dataprovider

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/braydio/RSAssistant-sub000/utilities"

	_ "github.com/mattn/go-sqlite3"
)

// CandleCache mirrors fetched OHLC bars into SQLite so the control server
// and the backtester can read history without refetching.
type CandleCache struct {
	db     *sql.DB
	logger *utilities.Logger
}

func NewCandleCache(dbCfg utilities.DatabaseConfig, logger *utilities.Logger) (*CandleCache, error) {
	db, err := sql.Open("sqlite3", dbCfg.DBPath)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS candle_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		UNIQUE(symbol, interval, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_symbol_interval_timestamp ON candle_cache (symbol, interval, timestamp);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &CandleCache{db: db, logger: logger}, nil
}

// --- OHLC Bar Caching ---

func (c *CandleCache) SaveBar(symbol, interval string, bar utilities.OHLCVBar) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO candle_cache (symbol, interval, timestamp, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, interval, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	return err
}

// SaveBars writes a batch of bars inside one transaction.
func (c *CandleCache) SaveBars(symbol, interval string, bars []utilities.OHLCVBar) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin bar batch: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO candle_cache (symbol, interval, timestamp, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare bar insert: %w", err)
	}
	defer stmt.Close()
	for _, bar := range bars {
		if _, err := stmt.Exec(symbol, interval, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert bar at %d: %w", bar.Timestamp, err)
		}
	}
	return tx.Commit()
}

func (c *CandleCache) GetBars(symbol, interval string, start, end int64) ([]utilities.OHLCVBar, error) {
	rows, err := c.db.Query(`SELECT timestamp, open, high, low, close, volume FROM candle_cache WHERE symbol=? AND interval=? AND timestamp BETWEEN ? AND ? ORDER BY timestamp ASC`,
		symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bars []utilities.OHLCVBar
	for rows.Next() {
		var bar utilities.OHLCVBar
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// LatestBars returns up to limit of the newest cached bars, oldest first.
func (c *CandleCache) LatestBars(symbol, interval string, limit int) ([]utilities.OHLCVBar, error) {
	rows, err := c.db.Query(`SELECT timestamp, open, high, low, close, volume FROM candle_cache WHERE symbol=? AND interval=? ORDER BY timestamp DESC LIMIT ?`,
		symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bars []utilities.OHLCVBar
	for rows.Next() {
		var bar utilities.OHLCVBar
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	utilities.SortBarsByTimestamp(bars)
	return bars, nil
}

// --- Cleanup ---

func (c *CandleCache) CleanupOldBars(symbol string, olderThan time.Time) error {
	_, err := c.db.Exec(`DELETE FROM candle_cache WHERE symbol=? AND timestamp < ?`, symbol, olderThan.Unix())
	return err
}

func (c *CandleCache) Close() error {
	return c.db.Close()
}

// StartScheduledCleanup deletes bars older than retentionDays on a fixed
// cadence until ctx is cancelled.
func (c *CandleCache) StartScheduledCleanup(ctx context.Context, interval time.Duration, symbols []string, retentionDays int) {
	if retentionDays <= 0 {
		retentionDays = 14
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				for _, symbol := range symbols {
					if err := c.CleanupOldBars(symbol, cutoff); err != nil {
						c.logger.LogWarn("Scheduled candle cleanup error for %s: %v", symbol, err)
					}
				}
			}
		}
	}()
}
