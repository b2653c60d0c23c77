package journal

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/tmarchal/marginpnl/account"
)

// FormatTrades renders closed trades as an aligned text table for CLI
// output.
func FormatTrades(trades []account.ClosedTrade) string {
	if len(trades) == 0 {
		return "no trades"
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXIT TIME\tSYMBOL\tDIR\tQTY\tENTRY\tEXIT\tNET PNL\tWALLET")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ExitTime.UTC().Format(time.RFC3339),
			t.Symbol,
			t.Direction,
			t.Quantity.String(),
			t.EntryPrice.StringFixed(4),
			t.ExitPrice.StringFixed(4),
			t.NetPnL.StringFixed(4),
			t.Wallet.StringFixed(4),
		)
	}
	w.Flush()
	return buf.String()
}
