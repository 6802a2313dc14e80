package strategy

import (
	"github.com/braydio/RSAssistant-sub000/utilities"
)

// Trend colours reported by the classifier.
const (
	TrendGreen = "green"
	TrendRed   = "red"
)

// Trade directions derived from a colour flip.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// MinTrendCloses is the fewest closes TrendColor needs for a usable signal.
const MinTrendCloses = 10

const (
	fastPeriod = 7
	slowPeriod = 21
)

// CalculateSMA explicitly calculates the Simple Moving Average over the final
// period values. Returns 0.0 if there is not enough data.
func CalculateSMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0.0
	}
	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// TrendColor classifies a close series as green (fast average at or above the
// slow average) or red. Callers must supply at least MinTrendCloses closes.
func TrendColor(closes []float64) string {
	fast := CalculateSMA(closes, fastPeriod)
	slow := slowAverage(closes)
	if fast >= slow {
		return TrendGreen
	}
	return TrendRed
}

// slowAverage sums at most the final 21 closes but always divides by 21, so a
// short history drags the slow line toward zero.
func slowAverage(closes []float64) float64 {
	window := closes[len(closes)-utilities.MinInt(len(closes), slowPeriod):]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(slowPeriod)
}

// PositiveCloses extracts the non-zero closes from a bar series, the shape
// TrendColor consumes.
func PositiveCloses(bars []utilities.OHLCVBar) []float64 {
	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		if bar.Close != 0 {
			closes = append(closes, bar.Close)
		}
	}
	return closes
}
