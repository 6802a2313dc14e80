package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/braydio/RSAssistant-sub000/dataprovider"
	"github.com/braydio/RSAssistant-sub000/dataprovider/yahoo"
	"github.com/braydio/RSAssistant-sub000/pkg/app"
	"github.com/braydio/RSAssistant-sub000/strategy"
	"github.com/braydio/RSAssistant-sub000/utilities"
)

var (
	cfgFile string
	cfg     utilities.AppConfig
	logger  *utilities.Logger
)

// rootCmd represents the base command for the RSAssistant CLI. Running it
// without a subcommand starts the trading controller.
var rootCmd = &cobra.Command{
	Use:   "rsassistant",
	Short: "RSAssistant reverse-split trading assistant",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A local .env can hold the Discord webhook URL and auto-rsa API key.
		_ = godotenv.Load()

		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("json")
		viper.AutomaticEnv()
		viper.SetDefault("trading.enabled", true)
		viper.SetDefault("trading.logging_enabled", true)
		viper.SetDefault("trading.trend_safeguard_enabled", true)
		viper.SetDefault("scheduler.enabled", true)
		viper.SetDefault("web.enabled", true)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		level, err := utilities.ParseLogLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		if cfg.Logging.LogToFile && cfg.Logging.LogFilePath != "" {
			logger = utilities.NewFileLogger(level, cfg.Logging)
		} else {
			logger = utilities.NewLogger(level)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.LogWarn("Received signal: %v, initiating graceful shutdown.", sig)
			cancel()
		}()

		return app.Run(ctx, &cfg, logger)
	},
}

var (
	backtestInterval string
	backtestRange    string
	backtestBuffer   float64
	backtestSweep    bool
)

// backtestCmd replays the colour strategy over historical candles and prints
// the aggregate results. Candles come from the shared cache when a database
// is configured, otherwise straight from Yahoo.
var backtestCmd = &cobra.Command{
	Use:   "backtest [symbol]",
	Short: "Replay the colour strategy over historical candles",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := cfg.Trading.LongSymbol
		if len(args) > 0 {
			symbol = strings.ToUpper(strings.TrimSpace(args[0]))
		}
		if symbol == "" {
			symbol = "TQQQ"
		}

		interval := backtestInterval
		if interval == "" {
			interval = cfg.Trading.CandleInterval
		}
		if interval == "" {
			interval = "4h"
		}

		var cache *dataprovider.CandleCache
		if cfg.DB.DBPath != "" {
			var err error
			cache, err = dataprovider.NewCandleCache(cfg.DB, logger)
			if err != nil {
				return fmt.Errorf("failed to open candle cache: %w", err)
			}
			defer cache.Close()
		}

		provider, err := yahoo.NewClient(&cfg, logger, cache)
		if err != nil {
			return fmt.Errorf("failed to initialize market data provider: %w", err)
		}

		bars, err := provider.GetCandles(context.Background(), symbol, interval, backtestRange)
		if err != nil {
			return fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("no candles returned for %s", symbol)
		}

		if backtestSweep {
			buffers := []float64{0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.08, 0.10}
			results := strategy.SweepTrailingBuffers(bars, buffers)
			fmt.Printf("Trailing-buffer sweep for %s over %d %s candles:\n\n", symbol, len(bars), interval)
			fmt.Println("  buffer  safeguard  trades  win rate   net P&L")
			for _, res := range results {
				fmt.Printf("  %6.2f  %-9v  %6d  %7.1f%%  %+9.2f\n",
					res.Options.TrailingBuffer, res.Options.TrendSafeguard,
					res.TotalTrades, res.WinRate*100, res.NetProfit)
			}
			return nil
		}

		buffer := backtestBuffer
		if buffer <= 0 {
			buffer = cfg.Trading.TrailingBuffer
		}
		result := strategy.RunBacktest(bars, strategy.BacktestOptions{
			TrendSafeguard: cfg.Trading.TrendSafeguardEnabled,
			ExtendedTrend:  cfg.Trading.AllowExtendedTrend,
			TrailingBuffer: buffer,
		})
		summary := strategy.Summarize(result.Outcomes(symbol))

		fmt.Printf("Backtest for %s over %d %s candles:\n\n", symbol, len(bars), interval)
		fmt.Printf("  Trades:        %d (%d wins / %d losses)\n", summary.TotalTrades, summary.Wins, summary.Losses)
		fmt.Printf("  Win rate:      %.1f%%\n", summary.WinRate*100)
		fmt.Printf("  Net P&L:       %+.2f\n", summary.NetPnL)
		fmt.Printf("  Profit factor: %.2f\n", result.ProfitFactor)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.json", "config file (default is config/config.json)")
	backtestCmd.Flags().StringVar(&backtestInterval, "interval", "", "candle interval to replay (default is the configured interval)")
	backtestCmd.Flags().StringVar(&backtestRange, "range", "6mo", "history range to fetch")
	backtestCmd.Flags().Float64Var(&backtestBuffer, "buffer", 0, "trailing buffer override (0 uses the configured value)")
	backtestCmd.Flags().BoolVar(&backtestSweep, "sweep", false, "sweep candidate trailing buffers instead of a single run")
	rootCmd.AddCommand(backtestCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
