package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tmarchal/marginpnl/account"
	"github.com/tmarchal/marginpnl/config"
	"github.com/tmarchal/marginpnl/dataset"
	"github.com/tmarchal/marginpnl/journal"
	"github.com/tmarchal/marginpnl/market"
	"github.com/tmarchal/marginpnl/pkg/id"
	"github.com/tmarchal/marginpnl/stats"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Replay a fills CSV through the accounting engine",
	Long: `Analyze replays executed fills in time order through the FIFO
ledger, charging trading and funding fees, and prints the resulting
trade statistics.

Example:
  pnl analyze --fills fills.csv --orders orders.csv --config run.yaml`,
	RunE: runAnalyze,
}

var (
	anFillsPath  string
	anOrdersPath string
	anConfigPath string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&anFillsPath, "fills", "f", "", "path to fills CSV (required)")
	analyzeCmd.Flags().StringVarP(&anOrdersPath, "orders", "o", "", "path to order metadata CSV")
	analyzeCmd.Flags().StringVarP(&anConfigPath, "config", "c", "", "path to config file (YAML or JSON)")

	analyzeCmd.MarkFlagRequired("fills")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig(anConfigPath)
	if err != nil {
		return err
	}
	acfg, err := cfg.AccountConfig()
	if err != nil {
		return err
	}

	fills, err := dataset.LoadFills(anFillsPath)
	if err != nil {
		return fmt.Errorf("load fills: %w", err)
	}

	var orders []market.Order
	if anOrdersPath != "" {
		orders, err = dataset.LoadOrders(anOrdersPath)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
	}
	logger.Info("loaded history",
		zap.Int("fills", len(fills)),
		zap.Int("orders", len(orders)))

	result, err := account.Process(fills, orders, acfg)
	if err != nil {
		return fmt.Errorf("accounting: %w", err)
	}
	summary := stats.Compute(result.Trades, result.Equity)

	fmt.Fprintln(cmd.OutOrStdout(), summary.Text())

	if err := writeJournal(logger, cfg.Journal, result); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// loadConfig reads the given path or falls back to defaults without a
// journal sink.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		cfg.Journal = config.JournalConfig{}
		return cfg, nil
	}
	return config.LoadFromFile(path)
}

func writeJournal(logger *zap.Logger, jc config.JournalConfig, result account.Result) error {
	j, runID, err := openJournal(jc)
	if err != nil || j == nil {
		return err
	}
	defer j.Close()

	for _, t := range result.Trades {
		if err := j.RecordTrade(t); err != nil {
			return err
		}
	}
	for _, p := range result.Equity {
		if err := j.RecordEquity(p); err != nil {
			return err
		}
	}
	logger.Info("journal written",
		zap.String("type", jc.Type),
		zap.String("run_id", runID),
		zap.Int("trades", len(result.Trades)))
	return nil
}

// openJournal returns nil without error when no sink is configured.
func openJournal(jc config.JournalConfig) (journal.Journal, string, error) {
	switch jc.Type {
	case "":
		return nil, "", nil
	case "csv":
		j, err := journal.NewCSV(jc.TradesFile, jc.EquityFile)
		return j, "", err
	case "sqlite":
		runID := id.New()
		j, err := journal.NewSQLite(jc.DBPath, runID)
		return j, runID, err
	default:
		return nil, "", fmt.Errorf("unknown journal type %q", jc.Type)
	}
}
