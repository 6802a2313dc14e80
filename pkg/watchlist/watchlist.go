// File: pkg/watchlist/watchlist.go
package watchlist

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/braydio/RSAssistant-sub000/utilities"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one watched reverse-split candidate. SplitDate and SplitRatio are
// nil until the filing details are known.
type Entry struct {
	Ticker     string     `json:"ticker"`
	SplitDate  *time.Time `json:"split_date,omitempty"`
	SplitRatio *float64   `json:"split_ratio,omitempty"`
	Note       string     `json:"note,omitempty"`
	AddedAt    time.Time  `json:"added_at"`
}

// Store persists the reverse-split watchlist in SQLite.
type Store struct {
	db     *sql.DB
	logger *utilities.Logger
}

// NewStore opens (or creates) the watchlist table in the application
// database.
func NewStore(dbCfg utilities.DatabaseConfig, logger *utilities.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open watchlist db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS watchlist (
		ticker TEXT PRIMARY KEY,
		split_date TEXT,
		split_ratio REAL,
		note TEXT,
		added_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply watchlist schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// NormalizeTicker upper-cases a ticker and strips surrounding whitespace and
// a leading "$".
func NormalizeTicker(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimPrefix(t, "$")
	return strings.ToUpper(t)
}

// ParseSplitRatio converts the ratio notations seen in split notices into a
// single pre-to-post factor: "1-for-10", "1:10" and "1-10" all return 0.1,
// and a bare decimal like "0.1" is passed through.
func ParseSplitRatio(raw string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, errors.New("empty split ratio")
	}

	var newPart, oldPart string
	switch {
	case strings.Contains(s, "-for-"):
		parts := strings.SplitN(s, "-for-", 2)
		newPart, oldPart = parts[0], parts[1]
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		newPart, oldPart = parts[0], parts[1]
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		newPart, oldPart = parts[0], parts[1]
	default:
		ratio, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("unrecognized split ratio %q", raw)
		}
		if ratio <= 0 {
			return 0, fmt.Errorf("split ratio must be positive, got %q", raw)
		}
		return ratio, nil
	}

	newShares, err := strconv.ParseFloat(strings.TrimSpace(newPart), 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized split ratio %q", raw)
	}
	oldShares, err := strconv.ParseFloat(strings.TrimSpace(oldPart), 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized split ratio %q", raw)
	}
	if newShares <= 0 || oldShares <= 0 {
		return 0, fmt.Errorf("split ratio must be positive, got %q", raw)
	}
	return newShares / oldShares, nil
}

// Add puts a ticker on the watchlist. The ticker is normalized first;
// re-adding a watched ticker is an error.
func (s *Store) Add(ticker string, splitDate *time.Time, ratio *float64, note string) (Entry, error) {
	normalized := NormalizeTicker(ticker)
	if normalized == "" {
		return Entry{}, errors.New("ticker is required")
	}

	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM watchlist WHERE ticker = ?)`, normalized).Scan(&exists)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to check watchlist for %s: %w", normalized, err)
	}
	if exists {
		return Entry{}, fmt.Errorf("%s is already on the watchlist", normalized)
	}

	entry := Entry{
		Ticker:     normalized,
		SplitDate:  splitDate,
		SplitRatio: ratio,
		Note:       note,
		AddedAt:    time.Now().UTC(),
	}
	_, err = s.db.Exec(`
		INSERT INTO watchlist (ticker, split_date, split_ratio, note, added_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.Ticker, nullTime(entry.SplitDate), nullFloat(entry.SplitRatio), entry.Note,
		utilities.FormatTimestamp(entry.AddedAt))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to add %s to watchlist: %w", normalized, err)
	}

	s.logger.LogInfo("Watching %s for a reverse split", normalized)
	return entry, nil
}

// Remove drops a ticker from the watchlist, reporting whether it was
// present.
func (s *Store) Remove(ticker string) (bool, error) {
	normalized := NormalizeTicker(ticker)
	res, err := s.db.Exec(`DELETE FROM watchlist WHERE ticker = ?`, normalized)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", normalized, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		s.logger.LogInfo("Stopped watching %s", normalized)
	}
	return affected > 0, nil
}

// List returns every watched entry, dated entries first in split-date order,
// then undated entries alphabetically.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT ticker, split_date, split_ratio, note, added_at
		FROM watchlist
		ORDER BY split_date IS NULL, split_date, ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Upcoming returns entries whose split date falls between now and
// now+within.
func (s *Store) Upcoming(within time.Duration) ([]Entry, error) {
	now := time.Now().UTC()
	rows, err := s.db.Query(`
		SELECT ticker, split_date, split_ratio, note, added_at
		FROM watchlist
		WHERE split_date IS NOT NULL AND split_date >= ? AND split_date <= ?
		ORDER BY split_date, ticker`,
		utilities.FormatTimestamp(now), utilities.FormatTimestamp(now.Add(within)))
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming splits: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the number of watched tickers.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM watchlist`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count watchlist: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var splitDate sql.NullString
		var ratio sql.NullFloat64
		var addedAt string
		if err := rows.Scan(&e.Ticker, &splitDate, &ratio, &e.Note, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		if splitDate.Valid {
			t, err := utilities.ParseTimestamp(splitDate.String)
			if err != nil {
				return nil, fmt.Errorf("bad split date for %s: %w", e.Ticker, err)
			}
			e.SplitDate = &t
		}
		if ratio.Valid {
			v := ratio.Float64
			e.SplitRatio = &v
		}
		added, err := utilities.ParseTimestamp(addedAt)
		if err != nil {
			return nil, fmt.Errorf("bad added_at for %s: %w", e.Ticker, err)
		}
		e.AddedAt = added
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return utilities.FormatTimestamp(*t)
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
