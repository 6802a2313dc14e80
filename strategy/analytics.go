package strategy

// TradeOutcome is the minimal realized-trade view shared by live history and
// backtest reports.
type TradeOutcome struct {
	Symbol    string
	Direction string
	PnL       float64
}

// SymbolPerformance aggregates the outcomes for one symbol.
type SymbolPerformance struct {
	Trades int     `json:"trades"`
	Wins   int     `json:"wins"`
	NetPnL float64 `json:"net_pnl"`
}

// PerformanceSummary aggregates realized trade outcomes.
type PerformanceSummary struct {
	TotalTrades int                          `json:"total_trades"`
	Wins        int                          `json:"wins"`
	Losses      int                          `json:"losses"`
	NetPnL      float64                      `json:"net_pnl"`
	WinRate     float64                      `json:"win_rate"`
	BySymbol    map[string]SymbolPerformance `json:"by_symbol"`
}

// Summarize folds a list of realized trades into win/loss counts, net P&L and
// a per-symbol breakdown. A trade with zero P&L counts as a loss.
func Summarize(outcomes []TradeOutcome) PerformanceSummary {
	summary := PerformanceSummary{
		BySymbol: make(map[string]SymbolPerformance),
	}

	for _, outcome := range outcomes {
		summary.TotalTrades++
		summary.NetPnL += outcome.PnL

		bySymbol := summary.BySymbol[outcome.Symbol]
		bySymbol.Trades++
		bySymbol.NetPnL += outcome.PnL

		if outcome.PnL > 0 {
			summary.Wins++
			bySymbol.Wins++
		} else {
			summary.Losses++
		}
		summary.BySymbol[outcome.Symbol] = bySymbol
	}

	if summary.TotalTrades > 0 {
		summary.WinRate = float64(summary.Wins) / float64(summary.TotalTrades)
	}
	return summary
}
