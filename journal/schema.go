package journal

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	fill_id TEXT NOT NULL,
	order_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	quantity TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price TEXT NOT NULL,
	gross_pnl TEXT NOT NULL,
	trading_fees TEXT NOT NULL,
	funding_fees TEXT NOT NULL,
	commission TEXT NOT NULL,
	net_pnl TEXT NOT NULL,
	wallet TEXT NOT NULL,
	order_kind TEXT NOT NULL,
	order_group TEXT NOT NULL,
	PRIMARY KEY (run_id, fill_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
