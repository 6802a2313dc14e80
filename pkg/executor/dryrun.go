// File: pkg/executor/dryrun.go
package executor

import (
	"context"

	"github.com/braydio/RSAssistant-sub000/utilities"
)

// DryRunExecutor accepts every order without sending anything, echoing the
// would-be request payload back as a successful result. It stands in for the
// live adapter whenever no auto-rsa base URL is configured, which lets the
// strategy run end to end against a paper book.
type DryRunExecutor struct {
	logger *utilities.Logger
}

func NewDryRunExecutor(logger *utilities.Logger) *DryRunExecutor {
	if logger == nil {
		logger = utilities.NewLogger(utilities.Info)
	}
	logger.LogWarn("Trade executor initialised without a base URL; running in dry-run mode.")
	return &DryRunExecutor{logger: logger}
}

func (d *DryRunExecutor) Buy(ctx context.Context, symbol string, amount float64, usePercent bool) ExecResult {
	payload := map[string]interface{}{"symbol": symbol, "amount": amount, "use_percent": usePercent}
	return d.accept("POST", "/orders/buy", payload)
}

func (d *DryRunExecutor) Sell(ctx context.Context, symbol string, amount interface{}, broker string) ExecResult {
	payload := map[string]interface{}{"symbol": symbol, "amount": amount}
	if broker != "" {
		payload["broker"] = broker
	}
	return d.accept("POST", "/orders/sell", payload)
}

func (d *DryRunExecutor) SetBracket(ctx context.Context, symbol string, takeProfit, stopLoss float64) ExecResult {
	payload := map[string]interface{}{
		"symbol":      symbol,
		"take_profit": RoundPrice(takeProfit),
		"stop_loss":   RoundPrice(stopLoss),
	}
	return d.accept("POST", "/orders/brackets", payload)
}

func (d *DryRunExecutor) CancelAll(ctx context.Context, symbol string) ExecResult {
	payload := map[string]interface{}{"symbol": symbol}
	return d.accept("POST", "/orders/cancel", payload)
}

func (d *DryRunExecutor) GetPositions(ctx context.Context) ExecResult {
	return d.accept("GET", "/portfolio/positions", nil)
}

func (d *DryRunExecutor) accept(method, path string, payload map[string]interface{}) ExecResult {
	d.logger.LogInfo("[DRY-RUN] %s %s payload=%v", method, path, payload)
	if payload == nil {
		return ExecResult{Success: true}
	}
	return ExecResult{Success: true, Payload: payload}
}
