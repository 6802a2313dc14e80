package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/braydio/RSAssistant-sub000/dataprovider"
	"github.com/braydio/RSAssistant-sub000/dataprovider/yahoo"
	"github.com/braydio/RSAssistant-sub000/notification/discord"
	"github.com/braydio/RSAssistant-sub000/pkg/executor"
	"github.com/braydio/RSAssistant-sub000/pkg/executor/autorsa"
	"github.com/braydio/RSAssistant-sub000/pkg/optimizer"
	"github.com/braydio/RSAssistant-sub000/pkg/schedule"
	"github.com/braydio/RSAssistant-sub000/pkg/trading"
	"github.com/braydio/RSAssistant-sub000/pkg/watchlist"
	"github.com/braydio/RSAssistant-sub000/utilities"
	"github.com/braydio/RSAssistant-sub000/web"
)

// tradeNotifier forwards trade lifecycle events from the controller to
// Discord. Send failures are logged and never propagate back into the
// trading loop.
type tradeNotifier struct {
	discord *discord.Client
	logger  *utilities.Logger
}

func (n *tradeNotifier) TradeOpened(position *trading.TradePosition) {
	if position == nil {
		return
	}
	if err := n.discord.NotifyTradeOpened(*position); err != nil {
		n.logger.LogWarn("Trade Notifier: open notification failed: %v", err)
	}
}

func (n *tradeNotifier) TradeClosed(trade trading.ClosedTrade, reason string) {
	if err := n.discord.NotifyTradeClosed(trade, reason); err != nil {
		n.logger.LogWarn("Trade Notifier: close notification failed: %v", err)
	}
}

// appController exposes the running components to the control server.
type appController struct {
	bot       *trading.UltMaBot
	store     *trading.StateStore
	watchlist *watchlist.Store
	queue     *schedule.Queue
	logger    *utilities.Logger
}

func (c *appController) Metrics() (trading.StrategyMetrics, error) {
	return c.bot.Metrics()
}

func (c *appController) Pause() {
	c.bot.Pause()
}

func (c *appController) Resume() {
	c.bot.Resume()
}

func (c *appController) UpdateColorFromWebhook(color string, timestamp time.Time) {
	c.bot.UpdateColorFromWebhook(color, timestamp)
}

func (c *appController) TradeHistory(limit int) ([]trading.ClosedTrade, error) {
	return c.store.ClosedPositions(limit)
}

func (c *appController) WatchlistEntries() ([]watchlist.Entry, error) {
	return c.watchlist.List()
}

func (c *appController) QueuedOrderCount() (int, error) {
	return c.queue.Count()
}

func (c *appController) Logger() *utilities.Logger {
	return c.logger
}

// startHoldingsUpdater posts a portfolio snapshot to Discord once at
// startup and then on a fixed interval.
func startHoldingsUpdater(ctx context.Context, exec executor.TradeExecutor, discordClient *discord.Client, logger *utilities.Logger, updateInterval time.Duration) {
	reportHoldings := func() {
		res := exec.GetPositions(ctx)
		if !res.Success {
			logger.LogWarn("Holdings Updater: positions fetch failed: %s", res.Error)
			return
		}
		if err := discordClient.NotifyHoldings(res.Payload); err != nil {
			logger.LogWarn("Holdings Updater: Discord notification failed: %v", err)
		}
	}
	go reportHoldings()
	ticker := time.NewTicker(updateInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				reportHoldings()
			}
		}
	}()
}

// Run wires every component together and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *utilities.AppConfig, logger *utilities.Logger) error {
	if cfg == nil {
		return errors.New("pre-flight check failed: configuration is nil")
	}
	if cfg.DB.DBPath == "" {
		return errors.New("pre-flight check failed: database.database_path is not configured")
	}

	discordClient := discord.NewClient(cfg.Discord.WebhookURL)
	discordClient.SendMessage(fmt.Sprintf("✅ **RSAssistant v%s Starting Up**", cfg.Version))
	defer discordClient.SendMessage("🛑 **RSAssistant Shutting Down**")

	logger.LogInfo("AppRun: Initializing SQLite stores at %s...", cfg.DB.DBPath)
	stateStore, err := trading.NewStateStore(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize trading state store: %w", err)
	}
	defer stateStore.Close()

	candleCache, err := dataprovider.NewCandleCache(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize candle cache: %w", err)
	}
	defer candleCache.Close()

	watchStore, err := watchlist.NewStore(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize watchlist store: %w", err)
	}
	defer watchStore.Close()

	orderQueue, err := schedule.NewQueue(cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize order queue: %w", err)
	}
	defer orderQueue.Close()

	provider, err := yahoo.NewClient(cfg, logger, candleCache)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize market data provider: %w", err)
	}

	longSymbol := cfg.Trading.LongSymbol
	if longSymbol == "" {
		longSymbol = "TQQQ"
	}
	shortSymbol := cfg.Trading.ShortSymbol
	if shortSymbol == "" {
		shortSymbol = "SQQQ"
	}
	candleCache.StartScheduledCleanup(ctx, 24*time.Hour, []string{longSymbol, shortSymbol}, cfg.MarketData.CacheRetentionDays)

	var exec executor.TradeExecutor
	if cfg.Executor.BaseURL == "" {
		logger.LogWarn("AppRun: executor.base_url is empty; orders stay in dry-run mode.")
		exec = executor.NewDryRunExecutor(logger)
	} else {
		liveExec, execErr := autorsa.NewClient(cfg, logger)
		if execErr != nil {
			return fmt.Errorf("pre-flight check failed: could not initialize auto-rsa executor: %w", execErr)
		}
		logger.LogInfo("AppRun: Orders will be routed to auto-rsa at %s.", cfg.Executor.BaseURL)
		exec = liveExec
	}

	bot, err := trading.NewUltMaBot(cfg, exec, stateStore, provider, logger, func(message string) {
		if notifyErr := discordClient.NotifyError(message); notifyErr != nil {
			logger.LogWarn("AppRun: Discord error notification failed: %v", notifyErr)
		}
	})
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize ULT-MA controller: %w", err)
	}
	bot.SetNotifier(&tradeNotifier{discord: discordClient, logger: logger})

	calendar, err := schedule.NewCalendar(cfg.Scheduler.MarketHolidays)
	if err != nil {
		return fmt.Errorf("pre-flight check failed: could not initialize market calendar: %w", err)
	}

	dispatcher := schedule.NewDispatcher(orderQueue, exec, calendar, cfg.Scheduler, logger)
	dispatcher.SetNotifier(discordClient)
	if cfg.Scheduler.Enabled {
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
	} else {
		logger.LogInfo("AppRun: Order dispatcher is disabled by configuration.")
	}

	opt := optimizer.NewOptimizer(logger, candleCache, cfg, provider)
	opt.StartScheduledOptimization(ctx)

	startHoldingsUpdater(ctx, exec, discordClient, logger, 24*time.Hour)

	if cfg.Web.Enabled {
		controller := &appController{
			bot:       bot,
			store:     stateStore,
			watchlist: watchStore,
			queue:     orderQueue,
			logger:    logger,
		}
		web.StartWebServer(ctx, controller, cfg.Web.ListenAddr)
	} else {
		logger.LogInfo("AppRun: Control server is disabled by configuration.")
	}

	if cfg.Trading.Enabled {
		bot.Start(ctx)
		defer bot.Stop()
	} else {
		logger.LogWarn("AppRun: trading.enabled is false; the ULT-MA loops will not run.")
	}

	logger.LogInfo("AppRun: RSAssistant v%s is up. Watching %s/%s.", cfg.Version, longSymbol, shortSymbol)
	<-ctx.Done()
	logger.LogInfo("AppRun: Shutdown signal received, stopping background loops...")
	return nil
}
