package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tmarchal/marginpnl/account"
)

// SQLiteJournal stores run output in a SQLite database. Monetary
// columns are stored as decimal text so nothing is lost to float
// round-trips; runID keys every row so multiple runs can share one db.
type SQLiteJournal struct {
	db    *sql.DB
	runID string
}

func NewSQLite(path, runID string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db, runID: runID}, nil
}

func (j *SQLiteJournal) RecordTrade(t account.ClosedTrade) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, symbol, fill_id, order_id, direction, quantity,
		 entry_time, exit_time, entry_price, exit_price,
		 gross_pnl, trading_fees, funding_fees, commission,
		 net_pnl, wallet, order_kind, order_group)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, t.Symbol, t.FillID, t.OrderID, t.Direction, t.Quantity.String(),
		t.EntryTime.UTC(), t.ExitTime.UTC(), t.EntryPrice.String(), t.ExitPrice.String(),
		t.GrossPnL.String(), t.TradingFees.String(), t.FundingFees.String(), t.Commission.String(),
		t.NetPnL.String(), t.Wallet.String(), t.OrderKind, t.OrderGroup,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e account.EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		j.runID, e.Time.UTC(), e.Equity.String(),
	)
	return err
}

// ListTrades returns this run's trades in close-time order.
func (j *SQLiteJournal) ListTrades() ([]account.ClosedTrade, error) {
	return j.queryTrades(`
		SELECT symbol, fill_id, order_id, direction, quantity,
		       entry_time, exit_time, entry_price, exit_price,
		       gross_pnl, trading_fees, funding_fees, commission,
		       net_pnl, wallet, order_kind, order_group
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_time ASC, fill_id ASC`, j.runID)
}

// ListTradesClosedBetween returns this run's trades whose exit time is
// within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]account.ClosedTrade, error) {
	return j.queryTrades(`
		SELECT symbol, fill_id, order_id, direction, quantity,
		       entry_time, exit_time, entry_price, exit_price,
		       gross_pnl, trading_fees, funding_fees, commission,
		       net_pnl, wallet, order_kind, order_group
		FROM trades
		WHERE run_id = ? AND exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, fill_id ASC`, j.runID, start.UTC(), end.UTC())
}

func (j *SQLiteJournal) queryTrades(query string, args ...any) ([]account.ClosedTrade, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.ClosedTrade
	for rows.Next() {
		var (
			t                                    account.ClosedTrade
			qty, entryPx, exitPx, gross          string
			tradingFees, fundingFees, commission string
			net, wallet                          string
		)
		if err := rows.Scan(
			&t.Symbol, &t.FillID, &t.OrderID, &t.Direction, &qty,
			&t.EntryTime, &t.ExitTime, &entryPx, &exitPx,
			&gross, &tradingFees, &fundingFees, &commission,
			&net, &wallet, &t.OrderKind, &t.OrderGroup,
		); err != nil {
			return nil, err
		}

		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&t.Quantity, qty},
			{&t.EntryPrice, entryPx},
			{&t.ExitPrice, exitPx},
			{&t.GrossPnL, gross},
			{&t.TradingFees, tradingFees},
			{&t.FundingFees, fundingFees},
			{&t.Commission, commission},
			{&t.NetPnL, net},
			{&t.Wallet, wallet},
		} {
			d, err := decimal.NewFromString(f.src)
			if err != nil {
				return nil, fmt.Errorf("journal: corrupt decimal %q: %w", f.src, err)
			}
			*f.dst = d
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquity returns this run's equity curve in time order.
func (j *SQLiteJournal) ListEquity() ([]account.EquityPoint, error) {
	rows, err := j.db.Query(`
		SELECT time, equity FROM equity
		WHERE run_id = ?
		ORDER BY time ASC`, j.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.EquityPoint
	for rows.Next() {
		var (
			p  account.EquityPoint
			eq string
		)
		if err := rows.Scan(&p.Time, &eq); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(eq)
		if err != nil {
			return nil, fmt.Errorf("journal: corrupt decimal %q: %w", eq, err)
		}
		p.Equity = d
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRuns returns every run id in the database, newest first. ULID
// run ids sort lexicographically by creation time.
func (j *SQLiteJournal) ListRuns() ([]string, error) {
	rows, err := j.db.Query(`SELECT DISTINCT run_id FROM trades ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// WithRun returns a view of the same database scoped to another run.
func (j *SQLiteJournal) WithRun(runID string) *SQLiteJournal {
	return &SQLiteJournal{db: j.db, runID: runID}
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
