package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Text renders the summary as a plain-text report.
func (s Summary) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Realized PnL summary ===\n")
	fmt.Fprintf(&b, "Trades analyzed : %d\n\n", s.Trades)

	fmt.Fprintf(&b, "Performance:\n")
	fmt.Fprintf(&b, "  - Total realized PnL   : %s\n", s.TotalPnL.StringFixed(8))
	fmt.Fprintf(&b, "  - Mean PnL per trade   : %s\n", s.MeanPnL.StringFixed(8))
	fmt.Fprintf(&b, "  - Median PnL per trade : %s\n\n", s.MedianPnL.StringFixed(8))

	fmt.Fprintf(&b, "Win rate:\n")
	fmt.Fprintf(&b, "  - Winning trades : %d\n", s.Wins)
	fmt.Fprintf(&b, "  - Losing trades  : %d\n", s.Losses)
	fmt.Fprintf(&b, "  - Win rate       : %s %%\n", s.WinRate.StringFixed(2))
	if s.Payoff.Valid {
		fmt.Fprintf(&b, "  - Payoff ratio   : %s\n", s.Payoff.Decimal.StringFixed(3))
	} else {
		fmt.Fprintf(&b, "  - Payoff ratio   : undefined (not enough data)\n")
	}

	fmt.Fprintf(&b, "\nRisk:\n")
	fmt.Fprintf(&b, "  - Max drawdown (equity) : %s\n", s.MaxDrawdown.StringFixed(8))
	if s.DailyMean.Valid {
		fmt.Fprintf(&b, "  - Mean daily PnL        : %s\n", s.DailyMean.Decimal.StringFixed(8))
	}
	if s.DailyStdev.Valid {
		fmt.Fprintf(&b, "  - Daily PnL volatility  : %s\n", s.DailyStdev.Decimal.StringFixed(8))
	}
	if s.Sharpe.Valid {
		fmt.Fprintf(&b, "  - Sharpe-like ratio     : %s\n", s.Sharpe.Decimal.StringFixed(3))
	} else {
		fmt.Fprintf(&b, "  - Sharpe-like ratio     : undefined\n")
	}

	writeBreakdown(&b, "PnL by symbol", s.PnLBySymbol)
	writeBreakdown(&b, "PnL by order kind", s.PnLByOrderKind)
	writeBreakdown(&b, "PnL by order group (linked vs standalone)", s.PnLByGroup)

	return b.String()
}

func writeBreakdown(b *strings.Builder, title string, m map[string]decimal.Decimal) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(b, "  - %-18s : %s\n", k, m[k].StringFixed(8))
	}
}
