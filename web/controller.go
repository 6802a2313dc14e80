package web

import (
	"time"

	"github.com/braydio/RSAssistant-sub000/pkg/trading"
	"github.com/braydio/RSAssistant-sub000/pkg/watchlist"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

// AppController defines the interface the web package needs to interact with
// the running application. The app layer implements it by delegating to the
// trading bot and the stores.
type AppController interface {
	Metrics() (trading.StrategyMetrics, error)
	Pause()
	Resume()
	UpdateColorFromWebhook(color string, timestamp time.Time)
	TradeHistory(limit int) ([]trading.ClosedTrade, error)
	WatchlistEntries() ([]watchlist.Entry, error)
	QueuedOrderCount() (int, error)
	Logger() *utilities.Logger
}
