// File: pkg/trading/state.go
package trading

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/braydio/RSAssistant-sub000/utilities"

	_ "github.com/mattn/go-sqlite3"
)

// TrendState is the last known indicator state. Empty strings and nil times
// mean the field has never been observed.
type TrendState struct {
	LastColor          string
	PreviousColor      string
	LastTradeDirection string
	PendingColor       string
	PendingSince       *time.Time
	LastCheckAt        *time.Time
}

// TradingSettings are the runtime toggles persisted alongside the trend
// state. The JSON tags define the stored payload shape.
type TradingSettings struct {
	AllowExtendedTrend    bool    `json:"allow_extended_trend"`
	TrendSafeguardEnabled bool    `json:"trend_safeguard_enabled"`
	LoggingEnabled        bool    `json:"logging_enabled"`
	TrailingBuffer        float64 `json:"trailing_buffer"`
}

// DefaultSettings returns the settings written on first use.
func DefaultSettings() TradingSettings {
	return TradingSettings{
		AllowExtendedTrend:    false,
		TrendSafeguardEnabled: true,
		LoggingEnabled:        true,
		TrailingBuffer:        0.03,
	}
}

// TradePosition is the metadata for the single active trade.
type TradePosition struct {
	Symbol       string    `json:"symbol"`
	Direction    string    `json:"direction"`
	EntryPrice   float64   `json:"entry_price"`
	Quantity     float64   `json:"quantity"`
	TakeProfit   float64   `json:"take_profit"`
	StopLoss     float64   `json:"stop_loss"`
	OpenedAt     time.Time `json:"opened_at"`
	TrailingStop *float64  `json:"trailing_stop,omitempty"`
}

// ClosedTrade is one realized round trip from the P&L history.
type ClosedTrade struct {
	ID         int64     `json:"id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
	PnL        float64   `json:"pnl"`
}

// StateStore persists the controller's trend state, settings, active
// position and trade history in SQLite. Every table except the history
// holds a single row.
type StateStore struct {
	db     *sql.DB
	logger *utilities.Logger
}

// NewStateStore opens (or creates) the trading database and applies the
// schema.
func NewStateStore(dbCfg utilities.DatabaseConfig, logger *utilities.Logger) (*StateStore, error) {
	db, err := sql.Open("sqlite3", dbCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trading db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS ult_ma_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_color TEXT,
		previous_color TEXT,
		last_trade_direction TEXT,
		pending_color TEXT,
		pending_since TEXT,
		last_check_at TEXT
	);
	CREATE TABLE IF NOT EXISTS trade_position (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		symbol TEXT,
		direction TEXT,
		entry_price REAL,
		quantity REAL,
		take_profit REAL,
		stop_loss REAL,
		opened_at TEXT,
		trailing_stop REAL
	);
	CREATE TABLE IF NOT EXISTS trading_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS pnl_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		quantity REAL NOT NULL,
		opened_at TEXT NOT NULL,
		closed_at TEXT NOT NULL,
		pnl REAL NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply trading schema: %w", err)
	}

	logger.LogInfo("Trading state store ready at %s", dbCfg.DBPath)
	return &StateStore{db: db, logger: logger}, nil
}

// Close closes the underlying database handle.
func (s *StateStore) Close() error {
	return s.db.Close()
}

// LoadState returns the persisted trend state, or a zero state when none has
// been saved yet.
func (s *StateStore) LoadState() (TrendState, error) {
	row := s.db.QueryRow(`
		SELECT last_color, previous_color, last_trade_direction, pending_color, pending_since, last_check_at
		FROM ult_ma_state WHERE id = 1`)

	var lastColor, previousColor, lastDirection, pendingColor, pendingSince, lastCheckAt sql.NullString
	err := row.Scan(&lastColor, &previousColor, &lastDirection, &pendingColor, &pendingSince, &lastCheckAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TrendState{}, nil
	}
	if err != nil {
		return TrendState{}, fmt.Errorf("failed to load trend state: %w", err)
	}

	state := TrendState{
		LastColor:          lastColor.String,
		PreviousColor:      previousColor.String,
		LastTradeDirection: lastDirection.String,
		PendingColor:       pendingColor.String,
	}
	if state.PendingSince, err = parseNullTime(pendingSince); err != nil {
		return TrendState{}, fmt.Errorf("failed to parse pending_since: %w", err)
	}
	if state.LastCheckAt, err = parseNullTime(lastCheckAt); err != nil {
		return TrendState{}, fmt.Errorf("failed to parse last_check_at: %w", err)
	}
	return state, nil
}

// SaveState upserts the singleton trend state row.
func (s *StateStore) SaveState(state TrendState) error {
	_, err := s.db.Exec(`
		INSERT INTO ult_ma_state (id, last_color, previous_color, last_trade_direction, pending_color, pending_since, last_check_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_color = excluded.last_color,
			previous_color = excluded.previous_color,
			last_trade_direction = excluded.last_trade_direction,
			pending_color = excluded.pending_color,
			pending_since = excluded.pending_since,
			last_check_at = excluded.last_check_at`,
		nullString(state.LastColor),
		nullString(state.PreviousColor),
		nullString(state.LastTradeDirection),
		nullString(state.PendingColor),
		nullTime(state.PendingSince),
		nullTime(state.LastCheckAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save trend state: %w", err)
	}
	return nil
}

// LoadSettings returns the persisted settings. When no row exists yet the
// defaults are written and returned. Keys missing from an older payload keep
// their default values.
func (s *StateStore) LoadSettings() (TradingSettings, error) {
	row := s.db.QueryRow(`SELECT payload FROM trading_settings WHERE id = 1`)

	var payload string
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		settings := DefaultSettings()
		if saveErr := s.SaveSettings(settings); saveErr != nil {
			return TradingSettings{}, saveErr
		}
		return settings, nil
	}
	if err != nil {
		return TradingSettings{}, fmt.Errorf("failed to load trading settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return TradingSettings{}, fmt.Errorf("failed to decode trading settings payload: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts the singleton settings row.
func (s *StateStore) SaveSettings(settings TradingSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode trading settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO trading_settings (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		string(payload))
	if err != nil {
		return fmt.Errorf("failed to save trading settings: %w", err)
	}
	return nil
}

// SeedSettings writes the given settings only when no settings row exists
// yet, so configured defaults apply on first run without clobbering later
// runtime toggles.
func (s *StateStore) SeedSettings(settings TradingSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode trading settings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO trading_settings (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO NOTHING`,
		string(payload))
	if err != nil {
		return fmt.Errorf("failed to seed trading settings: %w", err)
	}
	return nil
}

// LoadActivePosition returns the active position, or nil when flat.
func (s *StateStore) LoadActivePosition() (*TradePosition, error) {
	row := s.db.QueryRow(`
		SELECT symbol, direction, entry_price, quantity, take_profit, stop_loss, opened_at, trailing_stop
		FROM trade_position WHERE id = 1`)

	var position TradePosition
	var openedAt string
	var trailing sql.NullFloat64
	err := row.Scan(&position.Symbol, &position.Direction, &position.EntryPrice, &position.Quantity,
		&position.TakeProfit, &position.StopLoss, &openedAt, &trailing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active position: %w", err)
	}

	if position.OpenedAt, err = utilities.ParseTimestamp(openedAt); err != nil {
		return nil, fmt.Errorf("failed to parse opened_at: %w", err)
	}
	if trailing.Valid {
		value := trailing.Float64
		position.TrailingStop = &value
	}
	return &position, nil
}

// SaveActivePosition upserts the active position row. A nil position clears
// it.
func (s *StateStore) SaveActivePosition(position *TradePosition) error {
	if position == nil {
		if _, err := s.db.Exec(`DELETE FROM trade_position WHERE id = 1`); err != nil {
			return fmt.Errorf("failed to clear active position: %w", err)
		}
		return nil
	}

	_, err := s.db.Exec(`
		INSERT INTO trade_position (id, symbol, direction, entry_price, quantity, take_profit, stop_loss, opened_at, trailing_stop)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			direction = excluded.direction,
			entry_price = excluded.entry_price,
			quantity = excluded.quantity,
			take_profit = excluded.take_profit,
			stop_loss = excluded.stop_loss,
			opened_at = excluded.opened_at,
			trailing_stop = excluded.trailing_stop`,
		position.Symbol,
		position.Direction,
		position.EntryPrice,
		position.Quantity,
		position.TakeProfit,
		position.StopLoss,
		utilities.FormatTimestamp(position.OpenedAt),
		nullFloat(position.TrailingStop),
	)
	if err != nil {
		return fmt.Errorf("failed to save active position: %w", err)
	}
	return nil
}

// RecordClosedPosition appends a realized trade to the history. P&L is
// computed as (exit - entry) * quantity; short exposure is held through an
// inverse product, so a profitable short still closes above its entry.
func (s *StateStore) RecordClosedPosition(symbol, direction string, entryPrice, exitPrice, quantity float64, openedAt, closedAt time.Time) error {
	pnl := (exitPrice - entryPrice) * quantity
	_, err := s.db.Exec(`
		INSERT INTO pnl_history (symbol, direction, entry_price, exit_price, quantity, opened_at, closed_at, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, direction, entryPrice, exitPrice, quantity,
		utilities.FormatTimestamp(openedAt), utilities.FormatTimestamp(closedAt), pnl)
	if err != nil {
		return fmt.Errorf("failed to record closed position: %w", err)
	}
	return nil
}

// ClosedPositions returns up to limit realized trades, newest first. A
// non-positive limit returns the 50 most recent.
func (s *StateStore) ClosedPositions(limit int) ([]ClosedTrade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, symbol, direction, entry_price, exit_price, quantity, opened_at, closed_at, pnl
		FROM pnl_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pnl history: %w", err)
	}
	defer rows.Close()

	var trades []ClosedTrade
	for rows.Next() {
		var trade ClosedTrade
		var openedAt, closedAt string
		if err := rows.Scan(&trade.ID, &trade.Symbol, &trade.Direction, &trade.EntryPrice, &trade.ExitPrice,
			&trade.Quantity, &openedAt, &closedAt, &trade.PnL); err != nil {
			return nil, fmt.Errorf("failed to scan pnl row: %w", err)
		}
		if trade.OpenedAt, err = utilities.ParseTimestamp(openedAt); err != nil {
			return nil, fmt.Errorf("failed to parse opened_at: %w", err)
		}
		if trade.ClosedAt, err = utilities.ParseTimestamp(closedAt); err != nil {
			return nil, fmt.Errorf("failed to parse closed_at: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pnl history: %w", err)
	}
	return trades, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
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

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := utilities.ParseTimestamp(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
