package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmarchal/marginpnl/account"
	"github.com/tmarchal/marginpnl/market"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleTrade(fillID string, exit time.Time, net string) account.ClosedTrade {
	return account.ClosedTrade{
		Symbol:      "BTCUSDT",
		FillID:      fillID,
		OrderID:     "o-" + fillID,
		Direction:   "long",
		Quantity:    dec("0.5"),
		EntryTime:   exit.Add(-time.Hour),
		ExitTime:    exit,
		EntryPrice:  dec("100"),
		ExitPrice:   dec("110"),
		GrossPnL:    dec("5"),
		TradingFees: dec("0.05"),
		FundingFees: dec("0.01"),
		Commission:  dec("0"),
		NetPnL:      dec(net),
		Wallet:      dec(net),
		OrderKind:   market.KindUnknown,
		OrderGroup:  market.GroupStandalone,
	}
}

func TestCSVJournalRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	exit := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("f1", exit, "4.94")))
	require.NoError(t, j.RecordEquity(account.EquityPoint{Time: exit, Equity: dec("4.94")}))
	require.NoError(t, j.Close())

	tf, err := os.Open(tradesPath)
	require.NoError(t, err)
	defer tf.Close()

	rows, err := csv.NewReader(tf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, "BTCUSDT", rows[1][0])
	assert.Equal(t, "f1", rows[1][1])
	assert.Equal(t, "4.94", rows[1][13])

	ef, err := os.Open(equityPath)
	require.NoError(t, err)
	defer ef.Close()

	erows, err := csv.NewReader(ef).ReadAll()
	require.NoError(t, err)
	require.Len(t, erows, 2)
	assert.Equal(t, equityHeader, erows[0])
	assert.Equal(t, "4.94", erows[1][1])
}

func TestSQLiteJournalRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pnl.sqlite")

	j, err := NewSQLite(path, "run-1")
	require.NoError(t, err)
	defer j.Close()

	exit1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	exit2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("f1", exit1, "4.94")))
	require.NoError(t, j.RecordTrade(sampleTrade("f2", exit2, "-1.2")))
	require.NoError(t, j.RecordEquity(account.EquityPoint{Time: exit1, Equity: dec("4.94")}))
	require.NoError(t, j.RecordEquity(account.EquityPoint{Time: exit2, Equity: dec("3.74")}))

	trades, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "f1", trades[0].FillID)
	assert.True(t, trades[0].NetPnL.Equal(dec("4.94")))
	assert.True(t, trades[0].Quantity.Equal(dec("0.5")))
	assert.Equal(t, exit1, trades[0].ExitTime.UTC())
	assert.Equal(t, "f2", trades[1].FillID)

	equity, err := j.ListEquity()
	require.NoError(t, err)
	require.Len(t, equity, 2)
	assert.True(t, equity[1].Equity.Equal(dec("3.74")))
}

func TestSQLiteJournalFiltersByDay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pnl.sqlite")

	j, err := NewSQLite(path, "run-1")
	require.NoError(t, err)
	defer j.Close()

	exit1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	exit2 := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleTrade("f1", exit1, "1")))
	require.NoError(t, j.RecordTrade(sampleTrade("f2", exit2, "2")))

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	trades, err := j.ListTradesClosedBetween(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "f1", trades[0].FillID)
}

func TestSQLiteJournalIsolatesRuns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pnl.sqlite")

	exit := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	j1, err := NewSQLite(path, "run-1")
	require.NoError(t, err)
	require.NoError(t, j1.RecordTrade(sampleTrade("f1", exit, "1")))
	require.NoError(t, j1.Close())

	j2, err := NewSQLite(path, "run-2")
	require.NoError(t, err)
	defer j2.Close()
	require.NoError(t, j2.RecordTrade(sampleTrade("f1", exit, "2")))

	trades, err := j2.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].NetPnL.Equal(dec("2")))

	runs, err := j2.ListRuns()
	require.NoError(t, err)
	assert.Equal(t, []string{"run-2", "run-1"}, runs)

	other := j2.WithRun("run-1")
	trades, err = other.ListTrades()
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].NetPnL.Equal(dec("1")))
}

func TestFormatTrades(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no trades", FormatTrades(nil))

	exit := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	out := FormatTrades([]account.ClosedTrade{sampleTrade("f1", exit, "4.94")})
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "long")
	assert.Contains(t, out, "4.9400")
}
