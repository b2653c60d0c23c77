package journal

import (
	"encoding/csv"
	"os"
	"time"

	"github.com/tmarchal/marginpnl/account"
)

var tradeHeader = []string{
	"symbol", "fill_id", "order_id", "direction", "quantity",
	"entry_time", "exit_time", "entry_price", "exit_price",
	"gross_pnl", "trading_fees", "funding_fees", "commission",
	"net_pnl", "wallet", "order_kind", "order_group",
}

var equityHeader = []string{"time", "equity"}

// CSVJournal appends trades and equity points to two CSV files,
// flushing after every record so partial runs remain inspectable.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write(tradeHeader); err != nil {
		return nil, err
	}
	if err := ew.Write(equityHeader); err != nil {
		return nil, err
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{trades: tw, equity: ew, tf: tf, ef: ef}, nil
}

func (j *CSVJournal) RecordTrade(t account.ClosedTrade) error {
	err := j.trades.Write([]string{
		t.Symbol,
		t.FillID,
		t.OrderID,
		t.Direction,
		t.Quantity.String(),
		t.EntryTime.UTC().Format(time.RFC3339Nano),
		t.ExitTime.UTC().Format(time.RFC3339Nano),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		t.GrossPnL.String(),
		t.TradingFees.String(),
		t.FundingFees.String(),
		t.Commission.String(),
		t.NetPnL.String(),
		t.Wallet.String(),
		t.OrderKind,
		t.OrderGroup,
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e account.EquityPoint) error {
	err := j.equity.Write([]string{
		e.Time.UTC().Format(time.RFC3339Nano),
		e.Equity.String(),
	})
	if err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}
	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}
