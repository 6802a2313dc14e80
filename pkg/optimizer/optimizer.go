// In pkg/optimizer/optimizer.go
package optimizer

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/braydio/RSAssistant-sub000/dataprovider"
	"github.com/braydio/RSAssistant-sub000/strategy"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

// Buffer candidates swept on every optimization cycle.
var bufferCandidates = []float64{0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.08, 0.10}

const minBacktestBars = 40

type Optimizer struct {
	logger *utilities.Logger
	cache  *dataprovider.CandleCache
	config *utilities.AppConfig
	dp     dataprovider.DataProvider
}

func NewOptimizer(logger *utilities.Logger, cache *dataprovider.CandleCache, config *utilities.AppConfig, dp dataprovider.DataProvider) *Optimizer {
	return &Optimizer{
		logger: logger,
		cache:  cache,
		config: config,
		dp:     dp,
	}
}

// RunOptimizationCycle sweeps the trailing-buffer candidates over recent
// history for the long symbol and records the best-performing combination.
func (o *Optimizer) RunOptimizationCycle(ctx context.Context) {
	symbol := o.config.Trading.LongSymbol
	if symbol == "" {
		symbol = "TQQQ"
	}
	interval := o.config.Trading.CandleInterval
	if interval == "" {
		interval = "4h"
	}

	o.logger.LogInfo("[Optimizer] Starting trailing-buffer sweep for %s...", symbol)

	sixMonthsAgo := time.Now().AddDate(0, -6, 0)
	bars, err := o.cache.GetBars(symbol, interval, sixMonthsAgo.Unix(), time.Now().Unix())
	if err != nil {
		o.logger.LogWarn("[Optimizer] Candle cache read for %s failed: %v", symbol, err)
	}

	if len(bars) < minBacktestBars {
		candleRange := o.config.Trading.CandleRange
		if candleRange == "" {
			candleRange = "1mo"
		}
		fetched, fetchErr := o.dp.GetCandles(ctx, symbol, interval, candleRange)
		if fetchErr != nil {
			o.logger.LogError("[Optimizer] Could not fetch historical data for %s: %v", symbol, fetchErr)
			return
		}
		bars = fetched
	}

	if len(bars) < minBacktestBars {
		o.logger.LogError("[Optimizer] Insufficient historical data for %s: %d bars, need %d", symbol, len(bars), minBacktestBars)
		return
	}
	if ctx.Err() != nil {
		o.logger.LogWarn("[Optimizer] Optimization cycle for %s cancelled.", symbol)
		return
	}

	o.logger.LogInfo("[Optimizer] Found %d historical bars for %s. Beginning sweep...", len(bars), symbol)

	results := strategy.SweepTrailingBuffers(bars, bufferCandidates)
	if len(results) == 0 {
		o.logger.LogWarn("[Optimizer] Sweep for %s produced no results.", symbol)
		return
	}

	best := results[0]
	if best.TotalTrades == 0 {
		o.logger.LogWarn("[Optimizer] Sweep for %s produced no trades; keeping the configured buffer.", symbol)
		return
	}
	if best.NetProfit <= 0 {
		o.logger.LogWarn("[Optimizer] Sweep for %s did not yield a profitable buffer (best %.2f).", symbol, best.NetProfit)
		return
	}

	o.logger.LogInfo("[Optimizer] Best combination for %s -> Profit: %.2f | Buffer(%.2f) Safeguard(%v) over %d trades",
		symbol, best.NetProfit, best.Options.TrailingBuffer, best.Options.TrendSafeguard, best.TotalTrades)
	o.saveOptimizedBuffer(symbol, best)
}

// optimizedBuffer is the payload written to config/optimized_buffer.json for
// operator review. The runtime settings row is never changed automatically.
type optimizedBuffer struct {
	Symbol                string    `json:"symbol"`
	TrailingBuffer        float64   `json:"trailing_buffer"`
	TrendSafeguardEnabled bool      `json:"trend_safeguard_enabled"`
	NetProfit             float64   `json:"net_profit"`
	WinRate               float64   `json:"win_rate"`
	TotalTrades           int       `json:"total_trades"`
	GeneratedAt           time.Time `json:"generated_at"`
}

func (o *Optimizer) saveOptimizedBuffer(symbol string, result strategy.BacktestResult) {
	payload := optimizedBuffer{
		Symbol:                symbol,
		TrailingBuffer:        result.Options.TrailingBuffer,
		TrendSafeguardEnabled: result.Options.TrendSafeguard,
		NetProfit:             result.NetProfit,
		WinRate:               result.WinRate,
		TotalTrades:           result.TotalTrades,
		GeneratedAt:           time.Now().UTC(),
	}

	file, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		o.logger.LogError("[Optimizer] Failed to marshal optimized buffer: %v", err)
		return
	}

	err = os.WriteFile("config/optimized_buffer.json", file, 0644)
	if err != nil {
		o.logger.LogError("[Optimizer] Failed to write optimized buffer file: %v", err)
	}
}

// StartScheduledOptimization launches a goroutine to run the optimizer periodically.
func (o *Optimizer) StartScheduledOptimization(ctx context.Context) {
	// Run once on startup
	go func() {
		o.RunOptimizationCycle(ctx)
	}()

	// Then run on a schedule (e.g., every 7 days)
	ticker := time.NewTicker(7 * 24 * time.Hour)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.RunOptimizationCycle(ctx)
			}
		}
	}()
}
