package strategy

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	outcomes := []TradeOutcome{
		{Symbol: "TQQQ", Direction: DirectionLong, PnL: 6.0},
		{Symbol: "TQQQ", Direction: DirectionLong, PnL: -2.0},
		{Symbol: "SQQQ", Direction: DirectionShort, PnL: 1.0},
		{Symbol: "SQQQ", Direction: DirectionShort, PnL: 0.0},
	}

	summary := Summarize(outcomes)

	if summary.TotalTrades != 4 {
		t.Fatalf("expected 4 trades, got %d", summary.TotalTrades)
	}
	if summary.Wins != 2 || summary.Losses != 2 {
		t.Fatalf("expected 2 wins and 2 losses, got %d/%d", summary.Wins, summary.Losses)
	}
	if summary.NetPnL != 5.0 {
		t.Fatalf("expected net PnL 5.0, got %v", summary.NetPnL)
	}
	if math.Abs(summary.WinRate-0.5) > 1e-9 {
		t.Fatalf("expected win rate 0.5, got %v", summary.WinRate)
	}

	tqqq := summary.BySymbol["TQQQ"]
	if tqqq.Trades != 2 || tqqq.Wins != 1 || tqqq.NetPnL != 4.0 {
		t.Fatalf("unexpected TQQQ breakdown: %+v", tqqq)
	}
	sqqq := summary.BySymbol["SQQQ"]
	if sqqq.Trades != 2 || sqqq.Wins != 1 || sqqq.NetPnL != 1.0 {
		t.Fatalf("unexpected SQQQ breakdown: %+v", sqqq)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalTrades != 0 || summary.WinRate != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	if summary.BySymbol == nil {
		t.Fatal("expected non-nil BySymbol map")
	}
}

func TestBacktestResultOutcomes(t *testing.T) {
	result := BacktestResult{Trades: []BacktestTrade{
		{Direction: DirectionShort, PnL: 6.0},
		{Direction: DirectionLong, PnL: -1.5},
	}}

	outcomes := result.Outcomes("TQQQ")
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Symbol != "TQQQ" || outcomes[0].Direction != DirectionShort || outcomes[0].PnL != 6.0 {
		t.Fatalf("unexpected first outcome: %+v", outcomes[0])
	}
}
