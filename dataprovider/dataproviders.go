package dataprovider

import (
	"context"

	"github.com/braydio/RSAssistant-sub000/utilities"
)

// DataProvider defines the interface for accessing OHLC market data.
//
// GetLastPrice reports ok=false when the provider had no candle to read a
// price from; a non-nil error means the fetch itself failed.
type DataProvider interface {
	GetCandles(ctx context.Context, symbol, interval, candleRange string) ([]utilities.OHLCVBar, error)
	GetLastPrice(ctx context.Context, symbol string) (price float64, ok bool, err error)
}
