// File: pkg/executor/executor.go
package executor

import (
	"context"
	"math"
)

// TradeExecutor defines the interface for routing orders to the auto-rsa
// execution service. Implementations report failures through the ExecResult
// rather than an error return, so a trading cycle can log a rejected order
// and keep going.
type TradeExecutor interface {
	// Buy places a market buy order for symbol. When usePercent is true the
	// amount is a fraction of available equity (1.0 == 100%).
	Buy(ctx context.Context, symbol string, amount float64, usePercent bool) ExecResult

	// Sell reduces or liquidates a position. amount is either a share
	// quantity or the string "all". A non-empty broker scopes the sell to
	// that brokerage; empty targets every connected brokerage.
	Sell(ctx context.Context, symbol string, amount interface{}, broker string) ExecResult

	// SetBracket attaches take-profit and stop-loss orders for symbol.
	SetBracket(ctx context.Context, symbol string, takeProfit, stopLoss float64) ExecResult

	// CancelAll cancels all open orders associated with symbol.
	CancelAll(ctx context.Context, symbol string) ExecResult

	// GetPositions returns current positions held at the brokerages.
	GetPositions(ctx context.Context) ExecResult
}

// ExecResult captures the outcome of a single executor call.
type ExecResult struct {
	Success    bool        `json:"success"`
	Payload    interface{} `json:"payload,omitempty"`
	StatusCode int         `json:"status_code,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// RoundPrice clamps a bracket price to four decimal places, the precision
// auto-rsa accepts on order endpoints.
func RoundPrice(v float64) float64 {
	return math.Round(v*10000) / 10000
}
