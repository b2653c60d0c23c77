package strategy

import (
	"fmt"

	"github.com/tmarchal/marginpnl/account"
	"github.com/tmarchal/marginpnl/market"
	"github.com/tmarchal/marginpnl/stats"
)

// BacktestOptions controls the end-of-dataset behavior.
type BacktestOptions struct {
	// CloseEnd force-closes any open position at the last candle's
	// close, so its outcome appears in the results.
	CloseEnd bool
}

// Backtest runs the strategy over an ordered candle sequence and
// returns the accounting result plus its statistics summary. Candles
// must be in non-decreasing time order; the engine does not sort.
func Backtest(symbol string, candles []market.Candle, cfg Config, acfg account.Config, opts BacktestOptions) (account.Result, stats.Summary, error) {
	acc := account.New(acfg)

	eng, err := New(symbol, cfg, acfg.Fees.Leverage, acc)
	if err != nil {
		return account.Result{}, stats.Summary{}, err
	}

	for i, c := range candles {
		if err := eng.OnCandle(c); err != nil {
			return account.Result{}, stats.Summary{}, fmt.Errorf("backtest %s: candle %d: %w", symbol, i, err)
		}
	}

	if opts.CloseEnd && len(candles) > 0 {
		last := candles[len(candles)-1]
		if err := eng.CloseOpenPosition(last.Close, last.Time); err != nil {
			return account.Result{}, stats.Summary{}, fmt.Errorf("backtest %s: close end: %w", symbol, err)
		}
	}

	res := acc.Finalize(market.OrderIndex(eng.Orders()))
	return res, stats.Compute(res.Trades, res.Equity), nil
}
