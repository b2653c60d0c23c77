package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tmarchal/marginpnl/dataset"
	"github.com/tmarchal/marginpnl/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the Bollinger range/trend strategy over a candles CSV",
	Long: `Backtest streams candles through the Bollinger range/trend
strategy. Synthetic fills are pushed through the same accounting
pipeline as exchange history, so fees and funding apply identically.

Example:
  pnl backtest --candles btcusdt-1h.csv --symbol BTCUSDT --config run.yaml`,
	RunE: runBacktest,
}

var (
	btCandlesPath string
	btConfigPath  string
	btSymbol      string
	btTimeframe   string
	btCloseEnd    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btCandlesPath, "candles", "k", "", "path to candles CSV (required)")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (YAML or JSON)")
	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "s", "", "symbol override (defaults to config)")
	backtestCmd.Flags().StringVar(&btTimeframe, "timeframe", "", "resample candles to this width, e.g. 1h")
	backtestCmd.Flags().BoolVar(&btCloseEnd, "close-end", true, "close any open position at the last candle")

	backtestCmd.MarkFlagRequired("candles")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(btConfigPath)
	if err != nil {
		return err
	}
	acfg, err := cfg.AccountConfig()
	if err != nil {
		return err
	}
	scfg, err := cfg.StrategyConfig()
	if err != nil {
		return err
	}

	symbol := cfg.Strategy.Symbol
	if btSymbol != "" {
		symbol = btSymbol
	}
	if symbol == "" {
		return fmt.Errorf("symbol required (set --symbol or strategy.symbol)")
	}

	candles, err := dataset.LoadCandles(btCandlesPath)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	timeframe := cfg.Backtest.Timeframe
	if btTimeframe != "" {
		timeframe = btTimeframe
	}
	if timeframe != "" {
		width, err := time.ParseDuration(timeframe)
		if err != nil {
			return fmt.Errorf("bad timeframe %q: %w", timeframe, err)
		}
		candles, err = dataset.Resample(candles, width)
		if err != nil {
			return err
		}
	}
	logger.Info("loaded candles",
		zap.String("symbol", symbol),
		zap.Int("candles", len(candles)))

	closeEnd := cfg.Backtest.CloseEnd
	if cmd.Flags().Changed("close-end") || btConfigPath == "" {
		closeEnd = btCloseEnd
	}

	opts := strategy.BacktestOptions{CloseEnd: closeEnd}
	result, summary, err := strategy.Backtest(symbol, candles, scfg, acfg, opts)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), summary.Text())
	fmt.Fprintf(cmd.OutOrStdout(), "Final wallet: %s\n", result.Wallet.StringFixed(2))

	if err := writeJournal(logger, cfg.Journal, result); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}
