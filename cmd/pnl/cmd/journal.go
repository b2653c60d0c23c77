package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmarchal/marginpnl/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query journaled trades from a SQLite database",
	Long: `Query closed-trade records written by analyze or backtest runs.

Examples:
  pnl journal runs --db pnl.sqlite
  pnl journal trades --db pnl.sqlite
  pnl journal day 2026-08-01 --db pnl.sqlite`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List run ids in the database, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List a run's trades in close-time order",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List a run's trades closed on a specific UTC day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalDBPath string
	journalRunID  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./pnl.sqlite", "path to SQLite journal DB")
	journalCmd.PersistentFlags().StringVarP(&journalRunID, "run", "r", "", "run id (defaults to the newest run)")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath, "")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	for _, r := range runs {
		fmt.Println(r)
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := openRun()
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Println(journal.FormatTrades(trades))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := openRun()
	if err != nil {
		return err
	}
	defer j.Close()

	day, err := time.ParseInLocation("2006-01-02", args[0], time.UTC)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	trades, err := j.ListTradesClosedBetween(day, day.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	fmt.Println(journal.FormatTrades(trades))
	return nil
}

// openRun opens the database scoped to --run, or to the newest run
// when the flag is empty.
func openRun() (*journal.SQLiteJournal, error) {
	j, err := journal.NewSQLite(journalDBPath, journalRunID)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if journalRunID != "" {
		return j, nil
	}

	runs, err := j.ListRuns()
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		j.Close()
		return nil, fmt.Errorf("no runs in %s", journalDBPath)
	}
	return j.WithRun(runs[0]), nil
}
