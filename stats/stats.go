// Package stats derives aggregate risk and performance figures from a
// run's closed trades and equity curve. Everything here is a pure
// function of its inputs and can be re-derived at any time.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmarchal/marginpnl/account"
)

// sharpeScale annualizes the daily Sharpe-like ratio.
var sharpeScale = math.Sqrt(365)

// Summary is the aggregate view over one run. Quantities with no
// well-defined value (payoff with no losses, volatility over a single
// day) are invalid NullDecimals rather than zeros, so callers can tell
// "no signal" from "zero".
type Summary struct {
	Trades int
	Wins   int
	Losses int

	TotalPnL  decimal.Decimal
	MeanPnL   decimal.Decimal
	MedianPnL decimal.Decimal

	WinRate     decimal.Decimal // percent, 0 with no trades
	Payoff      decimal.NullDecimal
	MaxDrawdown decimal.Decimal // <= 0 by construction

	DailyMean  decimal.NullDecimal
	DailyStdev decimal.NullDecimal
	Sharpe     decimal.NullDecimal

	PnLBySymbol    map[string]decimal.Decimal
	PnLByOrderKind map[string]decimal.Decimal
	PnLByGroup     map[string]decimal.Decimal
}

// Compute builds the summary from a run's output.
func Compute(trades []account.ClosedTrade, equity []account.EquityPoint) Summary {
	s := Summary{
		Trades:         len(trades),
		PnLBySymbol:    make(map[string]decimal.Decimal),
		PnLByOrderKind: make(map[string]decimal.Decimal),
		PnLByGroup:     make(map[string]decimal.Decimal),
	}

	winSum, lossSum := decimal.Zero, decimal.Zero
	for _, t := range trades {
		s.TotalPnL = s.TotalPnL.Add(t.NetPnL)
		switch {
		case t.NetPnL.IsPositive():
			s.Wins++
			winSum = winSum.Add(t.NetPnL)
		case t.NetPnL.IsNegative():
			s.Losses++
			lossSum = lossSum.Add(t.NetPnL)
		}

		s.PnLBySymbol[t.Symbol] = s.PnLBySymbol[t.Symbol].Add(t.NetPnL)
		s.PnLByOrderKind[t.OrderKind] = s.PnLByOrderKind[t.OrderKind].Add(t.NetPnL)
		s.PnLByGroup[t.OrderGroup] = s.PnLByGroup[t.OrderGroup].Add(t.NetPnL)
	}

	if s.Trades > 0 {
		n := decimal.NewFromInt(int64(s.Trades))
		s.MeanPnL = s.TotalPnL.Div(n)
		s.MedianPnL = medianPnL(trades)
		s.WinRate = decimal.NewFromInt(int64(s.Wins)).Div(n).Mul(decimal.NewFromInt(100))
	}

	if s.Wins > 0 && s.Losses > 0 {
		avgWin := winSum.Div(decimal.NewFromInt(int64(s.Wins)))
		avgLoss := lossSum.Div(decimal.NewFromInt(int64(s.Losses))).Abs()
		if !avgLoss.IsZero() {
			s.Payoff = decimal.NullDecimal{Decimal: avgWin.Div(avgLoss), Valid: true}
		}
	}

	s.MaxDrawdown = maxDrawdown(equity)
	s.DailyMean, s.DailyStdev, s.Sharpe = dailyStats(trades)

	return s
}

func medianPnL(trades []account.ClosedTrade) decimal.Decimal {
	vals := make([]decimal.Decimal, len(trades))
	for i, t := range trades {
		vals[i] = t.NetPnL
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i].LessThan(vals[j]) })

	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return vals[n/2-1].Add(vals[n/2]).Div(decimal.NewFromInt(2))
}

// maxDrawdown is the lowest value of equity minus its running peak:
// zero for a non-decreasing curve, negative otherwise.
func maxDrawdown(equity []account.EquityPoint) decimal.Decimal {
	if len(equity) == 0 {
		return decimal.Zero
	}
	peak := equity[0].Equity
	maxDD := decimal.Zero
	for _, p := range equity {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		dd := p.Equity.Sub(peak)
		if dd.LessThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

// dailyStats buckets trade PnL by the UTC calendar date of the close
// and derives mean, population stdev, and the annualized Sharpe-like
// ratio. A single day still has a mean (that day's sum); fewer than
// two days, or zero variance, leave stdev and Sharpe undefined.
func dailyStats(trades []account.ClosedTrade) (mean, stdev, sharpe decimal.NullDecimal) {
	byDay := make(map[string]decimal.Decimal)
	for _, t := range trades {
		day := t.ExitTime.UTC().Format(time.DateOnly)
		byDay[day] = byDay[day].Add(t.NetPnL)
	}
	if len(byDay) == 0 {
		return
	}
	if len(byDay) == 1 {
		for _, v := range byDay {
			mean = decimal.NullDecimal{Decimal: v, Valid: true}
		}
		return
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	vals := make([]float64, len(days))
	for i, d := range days {
		vals[i], _ = byDay[d].Float64()
	}

	n := float64(len(vals))
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mu := sum / n

	var sq float64
	for _, v := range vals {
		sq += (v - mu) * (v - mu)
	}
	sigma := math.Sqrt(sq / n)

	mean = decimal.NullDecimal{Decimal: decimal.NewFromFloat(mu), Valid: true}
	stdev = decimal.NullDecimal{Decimal: decimal.NewFromFloat(sigma), Valid: true}
	if sigma > 0 {
		sharpe = decimal.NullDecimal{Decimal: decimal.NewFromFloat(mu / sigma * sharpeScale), Valid: true}
	}
	return
}
