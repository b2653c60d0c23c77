// Package journal persists engine output (closed trades, equity
// points) for later inspection. The engine itself never writes
// anywhere; callers pick a sink and feed it results.
package journal

import "github.com/tmarchal/marginpnl/account"

type Journal interface {
	RecordTrade(account.ClosedTrade) error
	RecordEquity(account.EquityPoint) error
	Close() error
}
