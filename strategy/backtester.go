package strategy

import (
	"sort"

	"github.com/braydio/RSAssistant-sub000/utilities"
)

// Exit thresholds relative to the entry price, shared by the live controller
// and the replay below.
const (
	TakeProfitRate = 0.10
	StopLossRate   = 0.05
)

// BacktestOptions tunes a replay of the colour strategy over historical bars.
type BacktestOptions struct {
	TrendSafeguard   bool
	ConfirmationBars int
	ExtendedTrend    bool
	TrailingBuffer   float64
}

// BacktestTrade is one simulated round trip. Bar indices refer to the input
// series.
type BacktestTrade struct {
	Direction  string
	EntryBar   int
	ExitBar    int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string
}

// BacktestResult holds the performance metrics of a single backtest run.
type BacktestResult struct {
	Options       BacktestOptions
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	NetProfit     float64
	ProfitFactor  float64
	WinRate       float64
	Trades        []BacktestTrade
}

// RunBacktest replays the colour strategy over historical bars. Green flips
// open a long on the bar close, red flips a short, and open positions are
// checked bar by bar against the same take-profit, stop-loss and trailing
// rules the live controller applies. A position still open at the end of the
// series is discarded rather than counted.
func RunBacktest(bars []utilities.OHLCVBar, opts BacktestOptions) BacktestResult {
	if opts.ConfirmationBars <= 0 {
		opts.ConfirmationBars = 1
	}

	type simulatedPosition struct {
		IsActive     bool
		Direction    string
		EntryBar     int
		EntryPrice   float64
		TakeProfit   float64
		StopLoss     float64
		TrailingStop float64
		HasTrailing  bool
	}

	var (
		trades       []BacktestTrade
		currentTrade simulatedPosition
		closes       []float64

		lastColor    string
		pendingColor string
		pendingBar   int
	)

	closeTrade := func(exitBar int, exitPrice float64, reason string) {
		pnl := exitPrice - currentTrade.EntryPrice
		if currentTrade.Direction == DirectionShort {
			pnl = currentTrade.EntryPrice - exitPrice
		}
		trades = append(trades, BacktestTrade{
			Direction:  currentTrade.Direction,
			EntryBar:   currentTrade.EntryBar,
			ExitBar:    exitBar,
			EntryPrice: currentTrade.EntryPrice,
			ExitPrice:  exitPrice,
			PnL:        pnl,
			Reason:     reason,
		})
		currentTrade = simulatedPosition{}
	}

	for i, bar := range bars {
		if bar.Close == 0 {
			continue
		}
		price := bar.Close

		if currentTrade.IsActive {
			long := currentTrade.Direction == DirectionLong
			hitTP := (long && price >= currentTrade.TakeProfit) || (!long && price <= currentTrade.TakeProfit)
			hitSL := (long && price <= currentTrade.StopLoss) || (!long && price >= currentTrade.StopLoss)

			ratcheted := false
			if hitTP && opts.ExtendedTrend {
				newTrailing := price * (1 - opts.TrailingBuffer)
				if !long {
					newTrailing = price * (1 + opts.TrailingBuffer)
				}
				improved := !currentTrade.HasTrailing ||
					(long && newTrailing > currentTrade.TrailingStop) ||
					(!long && newTrailing < currentTrade.TrailingStop)
				if improved {
					currentTrade.TrailingStop = newTrailing
					currentTrade.HasTrailing = true
					ratcheted = true
				}
			}
			if !ratcheted {
				trailHit := currentTrade.HasTrailing &&
					((long && price <= currentTrade.TrailingStop) || (!long && price >= currentTrade.TrailingStop))
				if trailHit {
					closeTrade(i, price, "trailing stop")
				} else if hitTP || hitSL {
					reason := "stop loss"
					if hitTP {
						reason = "take profit"
					}
					closeTrade(i, price, reason)
				}
			}
		}

		closes = append(closes, price)
		if len(closes) < MinTrendCloses {
			continue
		}
		signalBar := len(closes) - 1
		color := TrendColor(closes)

		if lastColor == "" {
			lastColor = color
			continue
		}
		if color == lastColor {
			pendingColor = ""
			continue
		}
		if opts.TrendSafeguard {
			if pendingColor != color {
				pendingColor = color
				pendingBar = signalBar
				continue
			}
			if signalBar-pendingBar < opts.ConfirmationBars {
				continue
			}
		}
		pendingColor = ""
		lastColor = color

		if currentTrade.IsActive {
			closeTrade(i, price, "colour flip")
		}

		direction := DirectionLong
		tp := price * (1 + TakeProfitRate)
		sl := price * (1 - StopLossRate)
		if color == TrendRed {
			direction = DirectionShort
			tp = price * (1 - TakeProfitRate)
			sl = price * (1 + StopLossRate)
		}
		currentTrade = simulatedPosition{
			IsActive:   true,
			Direction:  direction,
			EntryBar:   i,
			EntryPrice: price,
			TakeProfit: tp,
			StopLoss:   sl,
		}
	}

	var netProfit, grossProfit, grossLoss float64
	winningTrades := 0
	for _, trade := range trades {
		netProfit += trade.PnL
		if trade.PnL > 0 {
			winningTrades++
			grossProfit += trade.PnL
		} else {
			grossLoss += -trade.PnL
		}
	}

	winRate := 0.0
	if len(trades) > 0 {
		winRate = float64(winningTrades) / float64(len(trades))
	}
	profitFactor := 0.0
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
	}

	return BacktestResult{
		Options:       opts,
		TotalTrades:   len(trades),
		WinningTrades: winningTrades,
		LosingTrades:  len(trades) - winningTrades,
		NetProfit:     netProfit,
		ProfitFactor:  profitFactor,
		WinRate:       winRate,
		Trades:        trades,
	}
}

// Outcomes converts the replay's trades into the shared summary shape.
func (r BacktestResult) Outcomes(symbol string) []TradeOutcome {
	outcomes := make([]TradeOutcome, 0, len(r.Trades))
	for _, trade := range r.Trades {
		outcomes = append(outcomes, TradeOutcome{Symbol: symbol, Direction: trade.Direction, PnL: trade.PnL})
	}
	return outcomes
}

// SweepTrailingBuffers replays the strategy for every candidate buffer with
// the extended-trend exit enabled, once with the trend safeguard and once
// without, and returns the runs ordered by net profit, best first.
func SweepTrailingBuffers(bars []utilities.OHLCVBar, buffers []float64) []BacktestResult {
	results := make([]BacktestResult, 0, 2*len(buffers))
	for _, buffer := range buffers {
		for _, safeguard := range []bool{true, false} {
			results = append(results, RunBacktest(bars, BacktestOptions{
				TrendSafeguard: safeguard,
				ExtendedTrend:  true,
				TrailingBuffer: buffer,
			}))
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].NetProfit > results[j].NetProfit
	})
	return results
}
