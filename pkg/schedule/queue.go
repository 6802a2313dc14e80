// File: pkg/schedule/queue.go
package schedule

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/braydio/RSAssistant-sub000/utilities"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Order actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Order is one scheduled buy or sell. Broker scopes a sell to a single
// brokerage; empty means every connected brokerage.
type Order struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Ticker    string    `json:"ticker"`
	Quantity  float64   `json:"quantity"`
	Broker    string    `json:"broker,omitempty"`
	ExecuteAt time.Time `json:"execute_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue is the durable order queue. Rows live until the dispatcher executes
// them or an operator cancels them.
type Queue struct {
	db     *sql.DB
	logger *utilities.Logger
}

// NewQueue opens (or creates) the order queue table in the application
// database.
func NewQueue(dbCfg utilities.DatabaseConfig, logger *utilities.Logger) (*Queue, error) {
	db, err := sql.Open("sqlite3", dbCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open order queue db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS order_queue (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		ticker TEXT NOT NULL,
		quantity REAL NOT NULL,
		broker TEXT,
		execute_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply order queue schema: %w", err)
	}

	return &Queue{db: db, logger: logger}, nil
}

// Close closes the underlying database handle.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue validates and persists an order. A blank ID is assigned a UUID and
// a zero ExecuteAt means "as soon as the market allows".
func (q *Queue) Enqueue(order Order) (Order, error) {
	order.Ticker = strings.ToUpper(strings.TrimSpace(order.Ticker))
	if order.Ticker == "" {
		return Order{}, errors.New("ticker is required")
	}
	if order.Action != ActionBuy && order.Action != ActionSell {
		return Order{}, fmt.Errorf("unknown order action %q", order.Action)
	}
	if order.Quantity <= 0 {
		return Order{}, fmt.Errorf("quantity must be positive, got %v", order.Quantity)
	}

	now := time.Now().UTC()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.ExecuteAt.IsZero() {
		order.ExecuteAt = now
	}
	order.CreatedAt = now

	_, err := q.db.Exec(`
		INSERT INTO order_queue (id, action, ticker, quantity, broker, execute_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.Action, order.Ticker, order.Quantity, order.Broker,
		utilities.FormatTimestamp(order.ExecuteAt), utilities.FormatTimestamp(order.CreatedAt))
	if err != nil {
		return Order{}, fmt.Errorf("failed to enqueue order %s: %w", order.ID, err)
	}

	q.logger.LogInfo("Queued %s %v %s (order %s, execute at %s)",
		order.Action, order.Quantity, order.Ticker, order.ID,
		utilities.FormatTimestamp(order.ExecuteAt))
	return order, nil
}

// Cancel removes an order by ID, reporting whether it was still queued.
func (q *Queue) Cancel(id string) (bool, error) {
	res, err := q.db.Exec(`DELETE FROM order_queue WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel order %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns every queued order, soonest execution first.
func (q *Queue) List() ([]Order, error) {
	return q.query(`
		SELECT id, action, ticker, quantity, broker, execute_at, created_at
		FROM order_queue
		ORDER BY execute_at, created_at, id`)
}

// Due returns the orders whose execution time has passed as of now.
func (q *Queue) Due(now time.Time) ([]Order, error) {
	return q.query(`
		SELECT id, action, ticker, quantity, broker, execute_at, created_at
		FROM order_queue
		WHERE execute_at <= ?
		ORDER BY execute_at, created_at, id`,
		utilities.FormatTimestamp(now.UTC()))
}

// ClearAll removes every queued order and returns how many were dropped.
func (q *Queue) ClearAll() (int64, error) {
	res, err := q.db.Exec(`DELETE FROM order_queue`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear order queue: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of queued orders.
func (q *Queue) Count() (int, error) {
	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM order_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count order queue: %w", err)
	}
	return n, nil
}

func (q *Queue) query(stmt string, args ...interface{}) ([]Order, error) {
	rows, err := q.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order queue: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var broker sql.NullString
		var executeAt, createdAt string
		if err := rows.Scan(&o.ID, &o.Action, &o.Ticker, &o.Quantity, &broker, &executeAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		o.Broker = broker.String
		if o.ExecuteAt, err = utilities.ParseTimestamp(executeAt); err != nil {
			return nil, fmt.Errorf("bad execute_at for order %s: %w", o.ID, err)
		}
		if o.CreatedAt, err = utilities.ParseTimestamp(createdAt); err != nil {
			return nil, fmt.Errorf("bad created_at for order %s: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
